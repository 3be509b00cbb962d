package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashureev/livechat/internal/conversation"
	"github.com/ashureev/livechat/internal/domain"
	"github.com/ashureev/livechat/internal/identity"
	"github.com/ashureev/livechat/internal/widget"
)

const chatHelp = `Commands:
  /info <name> <email> [phone]   submit your contact details
  /status                        show the connection status
  /quit                          leave the chat`

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with support from the terminal",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	kv, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(kv)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embed := widget.NewEmbed(widget.Settings{
		Store:           kv,
		Environment:     identity.HostEnvironment(userAgent()),
		HTTPTimeout:     cfg.HTTPTimeout,
		ConnectTimeout:  cfg.ConnectTimeout,
		DeliveredDelay:  cfg.DeliveredDelay,
		SeenDelay:       cfg.SeenDelay,
		AgentReplyDelay: cfg.AgentReplyDelay,
		AutoReply:       cfg.AutoReply,
		Logger:          slog.Default(),
	})
	defer embed.Destroy()

	w, err := embed.Init(ctx, widget.Options{
		WidgetID:  cfg.WidgetID,
		SellerID:  cfg.SellerID,
		APIURL:    cfg.APIBaseURL,
		SocketURL: cfg.SocketURL,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	wcfg := w.Config()
	fmt.Fprintf(out, "%s · %s\n", wcfg.CompanyName, wcfg.AgentName)
	if w.OutsideBusinessHours() {
		fmt.Fprintln(out, wcfg.BusinessHours.OutsideHoursMessage)
	}
	if w.NeedsVisitorInfo() {
		fmt.Fprintln(out, wcfg.UserInfoMessage)
	}
	fmt.Fprintln(out, chatHelp)

	if _, err := w.OpenChat(ctx); err != nil {
		return err
	}

	changes, cancel := w.Subscribe()
	defer cancel()
	r := newRenderer(out)
	r.render(w.Snapshot())
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				r.render(w.Snapshot())
			}
		}
	}()

	lines := make(chan string)
	go readLines(cmd.InOrStdin(), lines)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, w, out, line); quit {
				return nil
			}
		}
	}
}

func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

// handleLine runs one line of visitor input and reports whether the chat should end.
func handleLine(ctx context.Context, w *widget.Widget, out io.Writer, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "/quit":
		w.CloseChat()
		return true
	case line == "/status":
		label := w.StatusLabel()
		switch {
		case !w.IsOpen():
			label = "Closed (send a message to reopen)"
		case label == "":
			label = "Offline (messages are delivered by request)"
		}
		fmt.Fprintln(out, label)
		return false
	case strings.HasPrefix(line, "/info"):
		info, err := parseInfo(strings.TrimPrefix(line, "/info"))
		if err == nil {
			err = w.SubmitVisitorInfo(ctx, info)
		}
		if err != nil {
			fmt.Fprintln(out, "!", err)
		}
		return false
	}

	if w.NeedsVisitorInfo() {
		fmt.Fprintln(out, "! please submit your details with /info first")
		return false
	}
	// Rejections are already explained in the conversation.
	if _, err := w.Send(ctx, line); err != nil && !errors.Is(err, widget.ErrNotMounted) {
		slog.Debug("Send finished with error", "error", err)
	}
	return false
}

// parseInfo reads "<name> <email> [phone]".
func parseInfo(args string) (domain.VisitorInfo, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return domain.VisitorInfo{}, errors.New("usage: /info <name> <email> [phone]")
	}
	info := domain.VisitorInfo{Name: fields[0], Email: fields[1]}
	if len(fields) == 3 {
		info.Phone = fields[2]
	}
	return info, nil
}

// renderer prints new messages, status changes and the typing indicator.
type renderer struct {
	out     io.Writer
	printed map[string]domain.DeliveryStatus
	typing  bool
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, printed: make(map[string]domain.DeliveryStatus)}
}

func (r *renderer) render(snap conversation.Snapshot) {
	for _, m := range snap.Messages {
		prev, seen := r.printed[m.ID]
		switch {
		case !seen && m.IsUser():
			fmt.Fprintf(r.out, "you: %s [%s]\n", m.Text, m.Status)
		case !seen:
			fmt.Fprintf(r.out, "agent: %s\n", m.Text)
		case m.IsUser() && prev != m.Status:
			fmt.Fprintf(r.out, "  [%s] %s\n", m.Status, m.Text)
		}
		r.printed[m.ID] = m.Status
	}
	if snap.AgentTyping != r.typing {
		r.typing = snap.AgentTyping
		if r.typing {
			fmt.Fprintln(r.out, "agent is typing...")
		}
	}
}
