package main

import (
	"chat-link/domain"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

const previewLength = 40

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderUsers(out io.Writer, users []domain.User, histories map[string]int) {
	table := newTable(out, []string{"ID", "Name", "Email", "Messages", "Created"})
	for _, user := range users {
		table.Append([]string{
			user.ID,
			user.Name,
			user.Email,
			strconv.Itoa(histories[user.ID]),
			user.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func renderHistory(out io.Writer, ownerID string, messages []domain.ChatMessage) {
	table := newTable(out, []string{"At", "Direction", "Counterpart", "Message"})
	for _, m := range messages {
		direction, counterpart := domain.DirectionReceive, m.SenderID
		if m.SenderID == ownerID {
			direction, counterpart = domain.DirectionSend, m.ReceiverID
		}
		table.Append([]string{
			m.Timestamp.Format("15:04:05"),
			string(direction),
			counterpart,
			preview(m.Message),
		})
	}
	table.Render()
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
