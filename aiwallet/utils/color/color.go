package color

import (
	"github.com/fatih/color"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	infoColor      = color.New(color.FgGreen)
	warningColor   = color.New(color.FgYellow, color.Bold)
	errorColor     = color.New(color.FgRed, color.Bold)
	agentRespColor = color.New(color.FgHiYellow)
	successColor   = color.New(color.FgGreen, color.Bold)
	failColor      = color.New(color.FgMagenta, color.Bold)
	optionColor    = color.New(color.FgHiBlack)
)

func ColorPrompt(s string) string {
	return promptColor.Sprint(s)
}

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorWarning(s string) string {
	return warningColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

func ColorOption(s string) string {
	return optionColor.Sprint(s)
}

// ColorMessage colors assistant output by message kind: security notices
// stand out, transaction results read as success and errors as failure.
func ColorMessage(kind, s string) string {
	switch kind {
	case "error":
		return failColor.Sprint(s)
	case "security":
		return warningColor.Sprint(s)
	case "transaction":
		return successColor.Sprint(s)
	}
	return agentRespColor.Sprint(s)
}

func ColorSuccess(s string) string {
	return successColor.Sprint(s)
}
