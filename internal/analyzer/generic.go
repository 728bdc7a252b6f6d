package analyzer

import "regexp"

var (
	genericFunctionRe = regexp.MustCompile(`(?i)(?:function|def|func|fn)\s+(\w+)`)
	genericClassRe    = regexp.MustCompile(`(?i)\b(?:class|struct|trait|module)\s+(\w+)`)
	genericImportRe   = regexp.MustCompile(`(?i)(?:import|include|require|use)\s+['"<]*([^\s'";>]+)`)
)

// genericStrategy is used for languages without a dedicated strategy
func genericStrategy(text string) Symbols {
	var syms Symbols
	for _, m := range genericFunctionRe.FindAllStringSubmatch(text, -1) {
		syms.Functions = append(syms.Functions, m[1])
	}
	for _, m := range genericClassRe.FindAllStringSubmatch(text, -1) {
		syms.Classes = append(syms.Classes, m[1])
	}
	for _, m := range genericImportRe.FindAllStringSubmatch(text, -1) {
		syms.Imports = append(syms.Imports, m[1])
	}
	return syms
}

// emptyStrategy is used for data and prose formats
func emptyStrategy(string) Symbols {
	return Symbols{}
}
