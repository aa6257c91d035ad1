// Package notify sends Telegram alerts when stored odds move sharply
// between consecutive snapshots.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/qmercier/livedash/internal/evolution"
	"github.com/qmercier/livedash/internal/pkg/models"
	"github.com/qmercier/livedash/internal/pkg/storage"
)

// Min interval between any two Telegram messages to the same chat to avoid 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

// Suppress repeat alerts for the same match+slot within this window.
const alertCooldown = 30 * time.Minute

// scanPerPage is the list page size used by Scan.
const scanPerPage = 100

// movement describes one slot whose price changed enough to alert on.
type movement struct {
	MatchName  string
	Sport      string
	League     string
	Slot       string
	From       float64
	To         float64
	Percent    float64
	DetectedAt time.Time
}

// Notifier queues line-movement alerts and sends them from a background
// worker with a fixed interval between sends.
type Notifier struct {
	bot              *tgbotapi.BotAPI
	chatID           int64
	thresholdPercent float64

	store   storage.Catalogue
	tracker *evolution.Tracker

	mu       sync.Mutex
	lastSend time.Time
	// matchID|slot -> last alert time
	recent map[string]time.Time

	queue  chan movement
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotifier creates a Telegram notifier. Returns nil (and logs) when the
// token is empty or the bot cannot be reached; callers treat nil as
// "alerts disabled".
func NewNotifier(token string, chatID int64, thresholdPercent float64, store storage.Catalogue, tracker *evolution.Tracker) *Notifier {
	if token == "" || chatID == 0 {
		slog.Info("notify: telegram not configured, alerts disabled")
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("notify: failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		slog.Error("notify: failed to get bot info", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		bot:              bot,
		chatID:           chatID,
		thresholdPercent: thresholdPercent,
		store:            store,
		tracker:          tracker,
		recent:           make(map[string]time.Time),
		queue:            make(chan movement, 100),
		ctx:              ctx,
		cancel:           cancel,
	}

	n.wg.Add(1)
	go n.sender()

	slog.Info("notify: telegram notifier initialized", "chat_id", chatID, "threshold_percent", thresholdPercent)
	return n
}

// Stop stops the send worker. Messages left in the queue are dropped.
func (n *Notifier) Stop() {
	if n == nil {
		return
	}
	n.cancel()
	n.wg.Wait()
}

// Scan walks live and upcoming matches, compares each match's two latest
// snapshots and queues an alert for every slot that moved at least the
// configured percentage. Intended to run on the batch cadence.
func (n *Notifier) Scan(ctx context.Context) {
	if n == nil {
		return
	}

	start := time.Now()
	var scanned, alerted int
	for _, status := range []models.MatchStatus{models.StatusLive, models.StatusUpcoming} {
		for pageNum := 1; ; pageNum++ {
			page, err := n.store.ListMatches(ctx, storage.ListFilter{Status: status}, storage.PageRequest{Page: pageNum, PerPage: scanPerPage})
			if err != nil {
				slog.Error("notify: failed to list matches for scan", "status", status, "page", pageNum, "error", err)
				break
			}
			for i := range page.Matches {
				select {
				case <-ctx.Done():
					return
				default:
				}
				scanned++
				alerted += n.scanMatch(ctx, &page.Matches[i])
			}
			if len(page.Matches) < scanPerPage {
				break
			}
		}
	}
	slog.Info("notify: movement scan complete", "matches", scanned, "alerts", alerted, "duration", time.Since(start))
}

// scanMatch queues alerts for one match and returns how many were queued.
func (n *Notifier) scanMatch(ctx context.Context, m *models.Match) int {
	history, err := n.tracker.History(ctx, m.ID)
	if err != nil {
		slog.Warn("notify: failed to load history", "match_id", m.ID, "error", err)
		return 0
	}
	if len(history) < 2 {
		return 0
	}

	prev := &history[len(history)-2]
	curr := &history[len(history)-1]
	deltas := evolution.CompareSnapshots(prev, curr)

	now := time.Now()
	queued := 0
	for _, d := range deltas {
		if math.Abs(d.RelPercent) < n.thresholdPercent {
			continue
		}
		key := fmt.Sprintf("%d|%s", m.ID, d.Slot)
		n.mu.Lock()
		last, seen := n.recent[key]
		if seen && now.Sub(last) < alertCooldown {
			n.mu.Unlock()
			continue
		}
		n.recent[key] = now
		n.mu.Unlock()

		mv := movement{
			MatchName:  m.HomeTeam + " vs " + m.AwayTeam,
			Sport:      m.Sport,
			League:     m.League,
			Slot:       d.Slot,
			From:       d.From,
			To:         d.To,
			Percent:    math.Abs(d.RelPercent),
			DetectedAt: curr.ObservedAt,
		}
		select {
		case n.queue <- mv:
			queued++
		default:
			slog.Warn("notify: message queue is full, dropping alert", "match", mv.MatchName, "slot", mv.Slot)
		}
	}
	return queued
}

// sender delivers queued alerts, spacing sends by telegramSendInterval.
func (n *Notifier) sender() {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			return
		case mv := <-n.queue:
			n.send(mv)
		}
	}
}

func (n *Notifier) send(mv movement) {
	n.mu.Lock()
	elapsed := time.Since(n.lastSend)
	n.mu.Unlock()
	if elapsed < telegramSendInterval {
		select {
		case <-n.ctx.Done():
			return
		case <-time.After(telegramSendInterval - elapsed):
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, n.formatMovement(mv))
	msg.ParseMode = tgbotapi.ModeMarkdown

	n.mu.Lock()
	n.lastSend = time.Now()
	n.mu.Unlock()

	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("notify: telegram send failed", "match", mv.MatchName, "slot", mv.Slot, "error", err)
		return
	}
	slog.Info("notify: alert sent", "match", mv.MatchName, "slot", mv.Slot, "change_percent", mv.Percent)
}

func (n *Notifier) formatMovement(mv movement) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 *Line movement (≥%.1f%%)*\n\n", n.thresholdPercent))
	b.WriteString(fmt.Sprintf("*%s*\n", escapeMarkdown(mv.MatchName)))
	b.WriteString(fmt.Sprintf("📌 %s\n\n", formatSlot(mv.Slot)))
	b.WriteString(fmt.Sprintf("Was: *%.2f* → now: *%.2f* (%+.1f%%)\n", mv.From, mv.To, signedPercent(mv)))
	if mv.League != "" {
		b.WriteString(fmt.Sprintf("🏆 %s", escapeMarkdown(mv.League)))
		if mv.Sport != "" {
			b.WriteString(fmt.Sprintf(" (%s)", mv.Sport))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("🕐 Detected: %s\n", mv.DetectedAt.UTC().Format("2006-01-02 15:04 UTC")))
	return b.String()
}

// signedPercent restores the direction lost by the absolute delta.
func signedPercent(mv movement) float64 {
	if mv.To < mv.From {
		return -mv.Percent
	}
	return mv.Percent
}

// formatSlot turns a column name like "odds_dc_1x" into "Dc 1x".
func formatSlot(slot string) string {
	parts := strings.Split(strings.TrimPrefix(slot, "odds_"), "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return strings.Join(parts, " ")
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
