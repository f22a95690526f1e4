package cli

import (
	"fmt"
	"io"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"

	"github.com/fatih/color"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	pending = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	heading = color.New(color.Bold).SprintFunc()
)

func colorStatus(status string) string {
	switch entity.DocumentStatus(status) {
	case entity.DocumentStatusReady:
		return success(status)
	case entity.DocumentStatusFailed:
		return failure(status)
	default:
		return pending(status)
	}
}

func printDocument(w io.Writer, doc *dto.ShowDocumentResponse) {
	fmt.Fprintf(w, "%s  %s\n", heading(doc.Title), colorStatus(doc.Status))
	fmt.Fprintf(w, "  id:      %s\n", doc.Id)
	fmt.Fprintf(w, "  file:    %s (%d bytes)\n", doc.FileName, doc.ByteSize)
	fmt.Fprintf(w, "  chunks:  %d\n", doc.Chunks)
	if doc.Collection != "" {
		fmt.Fprintf(w, "  index:   %s\n", doc.Collection)
	}
	if doc.FailureReason != "" {
		fmt.Fprintf(w, "  reason:  %s\n", failure(doc.FailureReason))
	}
}

func printProgress(w io.Writer, p *dto.DocumentProgressResponse) {
	fmt.Fprintf(w, "  progress: %d/%d %s\n", p.Uploaded, p.Total, faint(progressBar(p.Uploaded, p.Total, 20)))
}

// progressBar renders uploaded/total as a fixed-width bar.
func progressBar(uploaded, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = uploaded * width / total
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := make([]byte, width)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '.'
		}
	}
	return "[" + string(bar) + "]"
}

func printAnswer(w io.Writer, resp *dto.AskResponse, showSources bool) {
	fmt.Fprintln(w, resp.Answer)
	fmt.Fprintf(w, "\n%s %s\n", faint("session:"), resp.SessionId)
	if !showSources {
		return
	}
	for _, src := range resp.Sources {
		fmt.Fprintf(w, "%s %s\n", faint(fmt.Sprintf("[chunk %d, score %.3f]", src.ChunkIndex, src.Score)), truncate(src.Text, 120))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
