package notifier

import (
	"strings"
	"time"
)

// Message 是一封独立的邮件，To 只含一个收件人。
type Message struct {
	To      string
	Subject string
	Body    string
}

// MessageSection 表示正文中的一个段落。
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage 描述统一格式的邮件正文。
type StructuredMessage struct {
	Title     string
	Timestamp time.Time
	Sections  []MessageSection
	Footer    string
}

const ruler = "━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// timestampLayout 与看板一致，附带 IST 后缀。
const timestampLayout = "2006-01-02 15:04 MST"

// RenderText 生成纯文本正文。
func (m StructuredMessage) RenderText() string {
	var b strings.Builder
	if title := strings.TrimSpace(m.Title); title != "" {
		b.WriteString(title + "\n")
		b.WriteString(ruler + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("Generated: " + m.Timestamp.Format(timestampLayout) + "\n")
	}
	for _, sec := range m.Sections {
		lines := sanitizeLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\n")
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(title + "\n")
		}
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString("\n" + footer + "\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimRight(line, " \t"); strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	return out
}
