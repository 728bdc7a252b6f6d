package assembler

import (
	"regexp"
	"strings"
)

var (
	uiTermRe = regexp.MustCompile(`\b(ui|interface|button|component|style|css|layout|design|visual|appearance|top bar|appbar|navbar|header|footer|sidebar|modal|dialog)s?\b`)

	// edit verbs in any inflection: fix, fixes, fixed, fixing
	editVerbRe = regexp.MustCompile(`\b(edit(s|ed|ing)?|chang(e|es|ed|ing)|modif(y|ies|ied|ying)|updat(e|es|ed|ing)|` +
		`improv(e|es|ed|ing)|fix(es|ed|ing)?|refactor(s|ed|ing)?|rewrit(e|es|ing|ten)|rewrote|adjust(s|ed|ing)?|` +
		`mak(e|es|ing)|made|set(s|ting)?|add(s|ed|ing)?|remov(e|es|ed|ing)|renam(e|es|ed|ing))\b`)

	stylingTermRe = regexp.MustCompile(`\b(css|style|styles|stylesheet|color|colour|font|theme)\b`)
)

// Intent is what a query asks for, read from its wording alone
type Intent struct {
	UI      bool // mentions an interface noun
	Edit    bool // contains an edit verb
	Styling bool // talks about styling; style sheets become edit targets
}

// Classify derives the intent of a query
func Classify(query string) Intent {
	q := strings.ToLower(query)
	return Intent{
		UI:      uiTermRe.MatchString(q),
		Edit:    editVerbRe.MatchString(q),
		Styling: stylingTermRe.MatchString(q),
	}
}
