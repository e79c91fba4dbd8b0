package autofix

import "regexp"

// Rule maps an error message pattern to the command that usually fixes it
type Rule struct {
	Pattern     *regexp.Regexp
	Command     string
	Description string
}

// defaultRules are matched in order; the first match wins
var defaultRules = []Rule{
	{
		Pattern:     regexp.MustCompile(`(?i)peer dep|ERESOLVE|conflicting peer dependency`),
		Command:     "npm install --legacy-peer-deps",
		Description: "Resolve peer dependency conflicts",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)Cannot find module|MODULE_NOT_FOUND`),
		Command:     "npm install",
		Description: "Install missing node modules",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)EACCES|EPERM|cache folder contains root-owned files`),
		Command:     "npm cache clean --force",
		Description: "Clear a corrupted or unwritable npm cache",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)ENOENT.*package\.json|no such file or directory, open '.*package\.json'`),
		Command:     "npm init -y",
		Description: "Create a missing package manifest",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)found \d+ (low|moderate|high|critical)? ?(severity )?vulnerabilit|npm audit fix`),
		Command:     "npm audit fix",
		Description: "Apply available security fixes",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)Parsing error|eslint|\d+ problems? \(\d+ errors?`),
		Command:     "npx eslint . --fix",
		Description: "Auto-fix lint problems",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)prettier|Code style issues`),
		Command:     "npx prettier --write .",
		Description: "Reformat sources",
	},
	{
		Pattern:     regexp.MustCompile(`ModuleNotFoundError|No module named`),
		Command:     "pip install -r requirements.txt",
		Description: "Install missing python packages",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)cypress.*(not installed|verify|binary)`),
		Command:     "npx cypress install",
		Description: "Install the cypress binary",
	},
}
