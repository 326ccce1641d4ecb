package main

import (
	"aiwallet/aiwallet/agents/core"
	"aiwallet/aiwallet/app"
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/utils/color"
	"aiwallet/aiwallet/utils/logging"
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConnectCmd() *cobra.Command {
	var username, sessionID string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Chat with the wallet assistant in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(username, sessionID)
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "cli", "username to act as")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume an existing session")
	return cmd
}

func runConnect(username, sessionID string) error {
	logging.InitLogger()
	defer logging.Sync()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(startCtx, cfg)
	startCancel()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.UserDAO.GetOrCreateUser(ctx, username, username+"@example.com")
	if err != nil {
		return err
	}
	conv, err := a.Convs.GetOrCreate(user.ID, sessionID)
	if err != nil {
		return err
	}
	logging.AppLogger.Info("CLI session started", zap.String("session_id", conv.ID), zap.Int("user_id", user.ID))

	events, unsubscribe := conv.Subscribe()
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-events:
				fmt.Println()
				printMessage(msg)
				fmt.Print(color.ColorPrompt("aiwallet> "))
			}
		}
	}()

	fmt.Println(color.ColorInfo("\nConnected to the wallet assistant."))
	fmt.Println("Session:", conv.ID)
	fmt.Println("Type a command, a menu number, or 'exit' to quit.")
	fmt.Println()

	var options []string
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print(color.ColorPrompt("aiwallet> "))
		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "exit" || line == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}
		if line == "" {
			continue
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
			line = options[n-1]
		}
		msgs, err := a.Agent.ProcessCommand(ctx, conv, user.ID, line)
		if err != nil {
			fmt.Println(color.ColorError(err.Error()))
			continue
		}
		for _, m := range msgs {
			printMessage(m)
			if m.UI != nil {
				options = m.UI.Options
			}
		}
	}
}

func printMessage(m core.ChatMessage) {
	fmt.Println(color.ColorMessage(string(m.Kind), m.Content))
	if m.UI != nil {
		for i, opt := range m.UI.Options {
			fmt.Println(color.ColorOption(fmt.Sprintf("  %d) %s", i+1, opt)))
		}
	}
}
