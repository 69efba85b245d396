package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/chatbridge/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("chatbridge setup")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Vendor.Name = prompt(scanner, "Environment name", cfg.Vendor.Name)
		if n, err := strconv.Atoi(prompt(scanner, "Brand ID", strconv.Itoa(cfg.Vendor.BrandID))); err == nil {
			cfg.Vendor.BrandID = n
		}
		cfg.Vendor.ChannelID = prompt(scanner, "Channel ID", cfg.Vendor.ChannelID)
		cfg.Vendor.ChatURL = prompt(scanner, "Chat URL (optional)", cfg.Vendor.ChatURL)
		cfg.Vendor.SocketURL = prompt(scanner, "Socket URL (optional)", cfg.Vendor.SocketURL)
		cfg.Server.Addr = prompt(scanner, "Listen address", cfg.Server.Addr)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		if cfg.Telegram.Token != "" {
			id := prompt(scanner, "Telegram chat ID", strconv.FormatInt(cfg.Telegram.ChatID, 10))
			if n, err := strconv.ParseInt(id, 10, 64); err == nil {
				cfg.Telegram.ChatID = n
			}
		}
		cfg.AMQP.URL = prompt(scanner, "RabbitMQ URL (optional)", cfg.AMQP.URL)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		if input := strings.TrimSpace(scanner.Text()); input != "" {
			return input
		}
	}
	return defaultVal
}
