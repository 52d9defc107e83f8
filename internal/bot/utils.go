package bot

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

func formatReplyText(text string, a ...any) string {
	text = strings.TrimSpace(dedent.Dedent(text))
	// Record values may contain '%', only format when there are arguments.
	if len(a) == 0 {
		return text
	}
	return fmt.Sprintf(text, a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	// Commands in groups may be addressed as /cmd@botname.
	command, _, _ := strings.Cut(parts[0], "@")
	return command, parts[1:]
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}
