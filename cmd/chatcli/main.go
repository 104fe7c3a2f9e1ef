package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prakasham-om/jbnet/internal/chatclient"
	"github.com/prakasham-om/jbnet/internal/models"
)

const defaultAdminEmail = "rohitsahoo866@gmail.com"

func main() {
	server := flag.String("server", "http://localhost:8080", "chat relay base URL")
	email := flag.String("email", "", "your identity (email)")
	peer := flag.String("peer", defaultAdminEmail, "peer identity; admins set this to the user they are viewing")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: chatcli -email you@example.com [-peer other@example.com] [-server http://host:port]")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	client, err := chatclient.New(chatclient.Config{
		BaseURL: *server,
		Self:    *email,
		Peer:    *peer,
		Logger:  logger,
		OnMessage: func(msg models.Message) {
			printMessage(*email, msg)
		},
		OnDeleted: func(messageID string) {
			fmt.Printf("  (message %s deleted)\n", messageID)
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := client.Open(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer client.Close()

	for _, msg := range client.Messages() {
		printMessage(*email, msg)
	}
	fmt.Println("-- type a message, /delete <id>, or /quit --")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue

		case line == "/quit":
			return

		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
			if !confirm(scanner, fmt.Sprintf("Delete message %s? [y/N] ", id)) {
				continue
			}
			if err := client.Delete(ctx, id); err != nil {
				fmt.Fprintln(os.Stderr, "delete failed:", err)
			}

		default:
			if _, err := client.Send(ctx, line); err != nil {
				fmt.Fprintln(os.Stderr, "send failed:", err)
			}
		}
	}
}

func confirm(scanner *bufio.Scanner, prompt string) bool {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func printMessage(self string, msg models.Message) {
	who := msg.Sender
	if msg.Sender == self {
		who = "you"
	}
	fmt.Printf("[%s] %s: %s (id=%s)\n", msg.Timestamp.Format("15:04:05"), who, msg.Message, msg.ID)
}
