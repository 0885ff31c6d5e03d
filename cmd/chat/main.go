// Command chat is a small terminal client for the recruitment-forum chat:
// it logs in, follows the conversation list over the list channel, and
// attaches to one conversation for interactive messaging.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"forumchat/internal/chat"
	"forumchat/internal/domain"
	"forumchat/internal/restclient"
)

func main() {
	_ = godotenv.Load()

	var (
		server   = flag.String("server", envOr("API_BASE_URL", "http://localhost:8000"), "REST API base URL")
		email    = flag.String("email", "", "account email")
		password = flag.String("password", "", "account password")
		convID   = flag.String("conversation", "", "conversation id to open (defaults to the most recent)")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	ctx := context.Background()

	rest, err := restclient.New(*server)
	if err != nil {
		log.Fatalf("invalid server url: %v", err)
	}

	user, err := rest.Login(ctx, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	fmt.Printf("logged in as %s (%s)\n", user.Name, user.Role)

	inbox := chat.NewInbox(rest)
	if err := inbox.Open(ctx); err != nil {
		log.Fatalf("open inbox: %v", err)
	}
	defer inbox.Close()

	convs := inbox.Conversations()
	if len(convs) == 0 {
		fmt.Println("no conversations yet")
		return
	}
	fmt.Println("conversations:")
	for _, c := range convs {
		fmt.Printf("  [%s] %-10s %s", c.ID, c.Status, c.Counterpart().DisplayName())
		if c.UnreadCount > 0 {
			fmt.Printf(" (%d unread)", c.UnreadCount)
		}
		fmt.Println()
	}

	target := domain.ID(*convID)
	if target == "" {
		target = convs[0].ID
	}
	if _, ok := inbox.Get(target); !ok {
		log.Fatalf("conversation %s not found", target)
	}

	viewer := domain.Participant{
		ID:    domain.IDFromInt64(user.ID),
		Name:  user.Name,
		Email: user.Email,
	}
	client := chat.NewClient(rest, viewer, target)

	printer := newPrinter(viewer.ID)
	client.OnChange(func() {
		printer.update(client.Messages(), client.TypingNames())
	})

	if err := client.Open(ctx); err != nil {
		log.Fatalf("open conversation: %v", err)
	}
	defer client.Close()

	printer.update(client.Messages(), nil)
	_ = client.MarkRead(ctx)

	fmt.Println("type a message and press enter (/quit to exit)")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		client.Typing()
		if _, err := client.Send(ctx, line); err != nil {
			fmt.Printf("!! message not sent: %v\n", err)
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// printer renders newly arrived messages and typing updates without
// repeating history on every change.
type printer struct {
	self    domain.ID
	printed map[domain.ID]struct{}
	typing  string
}

func newPrinter(self domain.ID) *printer {
	return &printer{self: self, printed: make(map[domain.ID]struct{})}
}

func (p *printer) update(msgs []domain.Message, typing []string) {
	for _, m := range msgs {
		if m.IsTemp() {
			// Provisional entries are replaced once the server confirms;
			// printing them would double up the echo.
			continue
		}
		if _, ok := p.printed[m.ID]; ok {
			continue
		}
		p.printed[m.ID] = struct{}{}
		who := m.SenderName
		if m.SenderID == p.self {
			who = "me"
		}
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Content)
	}

	indicator := ""
	switch len(typing) {
	case 0:
	case 1:
		indicator = typing[0] + " is typing..."
	default:
		indicator = fmt.Sprintf("%d people are typing...", len(typing))
	}
	if indicator != p.typing {
		p.typing = indicator
		if indicator != "" {
			fmt.Println(indicator)
		}
	}
}
