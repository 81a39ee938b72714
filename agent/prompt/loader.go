package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/general.txt
	generalRaw string

	//go:embed template/research.txt
	researchRaw string

	//go:embed template/writing.txt
	writingRaw string

	//go:embed template/code.txt
	codeRaw string

	//go:embed template/synthesis.txt
	synthesisRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router    string
	General   string
	Research  string
	Writing   string
	Code      string
	Synthesis string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:    strings.TrimSpace(routerRaw),
		General:   strings.TrimSpace(generalRaw),
		Research:  strings.TrimSpace(researchRaw),
		Writing:   strings.TrimSpace(writingRaw),
		Code:      strings.TrimSpace(codeRaw),
		Synthesis: strings.TrimSpace(synthesisRaw),
	}
}
