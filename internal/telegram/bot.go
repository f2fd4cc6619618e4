// Package telegram exposes the owner's agents over a Telegram bot. A
// chat is bound to one agent at a time; bound chats relay plain text
// through the chat pipeline and answer with the bot reply plus sources.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
)

// AgentUsecase lists the owner's agents for binding.
type AgentUsecase interface {
	ListAgents(ctx context.Context, userID string) (*entity.ListAgentsResponse, error)
}

// ChatUsecase runs a chat turn against a bound agent.
type ChatUsecase interface {
	SendMessage(ctx context.Context, userID, agentID, text string) (*entity.ChatReply, error)
}

// UserDirectory resolves the configured owner account.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// Bot is a long-polling Telegram gateway in front of the chat pipeline.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.TelegramConfig
	users    UserDirectory
	agents   AgentUsecase
	chat     ChatUsecase
	bindings *gocache.Cache
	ownerID  string
	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewBot creates a new Telegram bot
func NewBot(
	cfg *config.TelegramConfig,
	users UserDirectory,
	agents AgentUsecase,
	chat ChatUsecase,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	return &Bot{
		api:      api,
		cfg:      cfg,
		users:    users,
		agents:   agents,
		chat:     chat,
		bindings: gocache.New(cfg.BindingTTL, 2*cfg.BindingTTL),
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Start resolves the owner account and begins long polling. It returns
// once polling is running; updates are processed in the background.
func (b *Bot) Start(ctx context.Context) error {
	owner, err := b.users.GetByEmail(ctx, b.cfg.OwnerEmail)
	if err != nil {
		return fmt.Errorf("resolve owner %q: %w", b.cfg.OwnerEmail, err)
	}
	b.ownerID = owner.ID

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	go b.processUpdates(ctx, updates)

	b.logger.Info("telegram bot started", zap.String("owner", b.cfg.OwnerEmail))
	return nil
}

// Stop stops the bot gracefully
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("telegram bot stopped successfully")
		return nil
	case <-time.After(30 * time.Second):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (b *Bot) processUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopChan:
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				defer func() {
					if r := recover(); r != nil {
						b.logger.Error("panic in telegram handler", zap.Any("panic", r))
					}
				}()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	agentID, ok := b.bindings.Get(bindingKey(msg.Chat.ID))
	if !ok {
		b.reply(msg.Chat.ID, "No agent selected. Use /agents to list agents and /use to pick one.")
		return
	}

	reply, err := b.chat.SendMessage(ctx, b.ownerID, agentID.(string), msg.Text)
	if err != nil {
		b.logger.Error("chat turn failed",
			zap.Error(err),
			zap.Int64("chat_id", msg.Chat.ID),
		)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	// Rebinding on every turn keeps an active conversation alive past
	// the TTL; only idle chats expire.
	b.bindings.Set(bindingKey(msg.Chat.ID), agentID, b.cfg.BindingTTL)

	b.reply(msg.Chat.ID, renderReply(reply))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText)
	case "agents":
		b.handleListAgents(ctx, msg)
	case "use":
		b.handleUse(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. "+helpText)
	}
}

func (b *Bot) handleListAgents(ctx context.Context, msg *tgbotapi.Message) {
	resp, err := b.agents.ListAgents(ctx, b.ownerID)
	if err != nil {
		b.logger.Error("list agents failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if len(resp.Agents) == 0 {
		b.reply(msg.Chat.ID, "No agents yet. Create one through the API first.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Available agents:\n")
	for i, a := range resp.Agents {
		fmt.Fprintf(&sb, "%d. %s (%d documents)\n", i+1, a.Name, a.DocumentCount)
	}
	sb.WriteString("\nPick one with /use <number>")
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleUse(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.reply(msg.Chat.ID, "Usage: /use <number from /agents>")
		return
	}

	resp, err := b.agents.ListAgents(ctx, b.ownerID)
	if err != nil {
		b.logger.Error("list agents failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	selected := findAgent(resp.Agents, arg)
	if selected == nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("No agent matches %q. Use /agents to see the list.", arg))
		return
	}

	b.bindings.Set(bindingKey(msg.Chat.ID), selected.ID, b.cfg.BindingTTL)
	b.reply(msg.Chat.ID, fmt.Sprintf("Now talking to %s. Just send a message.", selected.Name))
}

// findAgent accepts either the 1-based number from the /agents listing
// or an exact name, case-insensitive.
func findAgent(agents []*entity.AgentSummary, arg string) *entity.AgentSummary {
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(agents) {
			return agents[n-1]
		}
		return nil
	}
	for _, a := range agents {
		if strings.EqualFold(a.Name, arg) {
			return a
		}
	}
	return nil
}

func renderReply(reply *entity.ChatReply) string {
	var sb strings.Builder
	sb.WriteString(reply.Message.Text)
	if len(reply.Sources) > 0 {
		sb.WriteString("\n\nSources:")
		for _, s := range reply.Sources {
			fmt.Fprintf(&sb, "\n- %s, page %d", s.Filename, s.Page)
		}
	}
	return sb.String()
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("send telegram message failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

func bindingKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

const helpText = "Commands:\n" +
	"/agents - list your agents\n" +
	"/use <number> - bind this chat to an agent\n" +
	"Then send any message to chat with the bound agent."
