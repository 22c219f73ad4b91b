package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/session"
)

// Prompter implements the line-mode annotation interface. Each task is shown
// as a boxed commentary followed by buy/sell/reason prompts.
type Prompter struct {
	reader      *bufio.Reader
	writer      io.Writer
	progressBar *progressbar.ProgressBar
	companies   []model.Company
	byCode      map[string]model.Company
}

// NewPrompter creates a line-mode prompter. Reader and writer default to
// stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer, companies []model.Company) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	byCode := make(map[string]model.Company, len(companies))
	for _, c := range companies {
		byCode[c.Code] = c
	}

	return &Prompter{
		reader:    bufio.NewReader(reader),
		writer:    writer,
		companies: companies,
		byCode:    byCode,
	}
}

// Annotate presents one task and collects the annotator's decision. Entering
// "q" at any prompt ends the session.
func (p *Prompter) Annotate(ctx context.Context, task session.Task) (model.Decision, error) {
	select {
	case <-ctx.Done():
		return model.Decision{}, ctx.Err()
	default:
	}

	p.updateProgress(task)

	if _, err := fmt.Fprintln(p.writer, RenderBox(p.formatHeader(task), task.Text)); err != nil {
		return model.Decision{}, fmt.Errorf("failed to write commentary box: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, SubtleStyle.Render(
		"Enter company codes separated by commas, blank for none, ? to list companies, q to quit.")); err != nil {
		return model.Decision{}, fmt.Errorf("failed to write instructions: %w", err)
	}

	for {
		buy, err := p.promptCodes(ctx, BuyIcon+" BUY")
		if err != nil {
			return model.Decision{}, err
		}

		sell, err := p.promptCodes(ctx, SellIcon+" SELL")
		if err != nil {
			return model.Decision{}, err
		}

		if overlap := intersect(buy, sell); len(overlap) > 0 {
			if _, err := fmt.Fprintln(p.writer, FormatError(fmt.Sprintf(
				"cannot buy and sell the same company: %s", strings.Join(overlap, ", ")))); err != nil {
				return model.Decision{}, fmt.Errorf("failed to write overlap error: %w", err)
			}
			continue
		}

		reason, err := p.promptLine(ctx, "Reason")
		if err != nil {
			return model.Decision{}, err
		}

		decision := model.Decision{Buy: buy, Sell: sell, Reason: reason}
		p.showSummary(decision)

		confirmed, err := p.promptConfirm(ctx)
		if err != nil {
			return model.Decision{}, err
		}
		if confirmed {
			return decision, nil
		}
	}
}

// ShowError displays a blocking error message.
func (p *Prompter) ShowError(msg string) {
	if _, err := fmt.Fprintln(p.writer, FormatError(msg)); err != nil {
		slog.Warn("Failed to write error message", "error", err)
	}
}

// ShowCompletion displays the all-done state.
func (p *Prompter) ShowCompletion(completed, total int) {
	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
		if _, err := fmt.Fprintln(p.writer); err != nil {
			slog.Warn("Failed to write newline", "error", err)
		}
	}

	summary := fmt.Sprintf("%s All commentaries evaluated!\n\n", ChartIcon) +
		fmt.Sprintf("  • Decisions recorded: %d of %d\n", completed, total) +
		"\nThank you for annotating."

	if _, err := fmt.Fprintln(p.writer, RenderBox("Session Complete", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

func (p *Prompter) formatHeader(task session.Task) string {
	id := task.ID
	return fmt.Sprintf("Market Commentary  (%d/%d)  %s · %s · %s · %s",
		task.Seq, task.Total, id.ISODate(), id.Source, id.Scenario, id.Method)
}

func (p *Prompter) updateProgress(task session.Task) {
	if p.progressBar == nil {
		p.progressBar = progressbar.NewOptions(task.Total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Annotating commentaries...[reset]"),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprintln(p.writer); err != nil {
					slog.Warn("Failed to write newline after progress bar", "error", err)
				}
			}),
		)
	}
	if err := p.progressBar.Set(task.Seq - 1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		slog.Warn("Failed to write newline", "error", err)
	}
}

func (p *Prompter) showSummary(decision model.Decision) {
	format := func(codes []string) string {
		if len(codes) == 0 {
			return SubtleStyle.Render("none")
		}
		labels := make([]string, 0, len(codes))
		for _, code := range codes {
			if c, ok := p.byCode[code]; ok {
				labels = append(labels, c.Display())
			} else {
				labels = append(labels, code)
			}
		}
		return strings.Join(labels, ", ")
	}

	reason := decision.Reason
	if reason == "" {
		reason = SubtleStyle.Render("(none)")
	}

	summary := fmt.Sprintf("%s Buy:  %s\n", BuyIcon, format(decision.Buy)) +
		fmt.Sprintf("%s Sell: %s\n", SellIcon, format(decision.Sell)) +
		fmt.Sprintf("%s Reason: %s", InfoIcon, reason)

	if _, err := fmt.Fprintln(p.writer, RenderBox("Your Decision", summary)); err != nil {
		slog.Warn("Failed to write decision summary", "error", err)
	}
}

// promptCodes reads a comma-separated list of company codes. Unknown codes
// re-prompt when a reference list is loaded.
func (p *Prompter) promptCodes(ctx context.Context, prompt string) ([]string, error) {
	for {
		input, err := p.promptLine(ctx, prompt)
		if err != nil {
			return nil, err
		}

		if input == "?" {
			p.listCompanies()
			continue
		}

		codes := splitCodes(input)

		var unknown []string
		if len(p.byCode) > 0 {
			for _, code := range codes {
				if _, ok := p.byCode[code]; !ok {
					unknown = append(unknown, code)
				}
			}
		}
		if len(unknown) > 0 {
			if _, err := fmt.Fprintln(p.writer, FormatWarning(fmt.Sprintf(
				"unknown company codes: %s", strings.Join(unknown, ", ")))); err != nil {
				return nil, fmt.Errorf("failed to write unknown codes warning: %w", err)
			}
			continue
		}

		return codes, nil
	}
}

func (p *Prompter) promptLine(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	input, err := p.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return "", session.ErrQuit
		}
		return "", err
	}

	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "q") {
		return "", session.ErrQuit
	}
	return input, nil
}

func (p *Prompter) promptConfirm(ctx context.Context) (bool, error) {
	for {
		input, err := p.promptLine(ctx, "Confirm decision? [y/n]")
		if err != nil {
			return false, err
		}

		switch strings.ToLower(input) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) listCompanies() {
	if len(p.companies) == 0 {
		if _, err := fmt.Fprintln(p.writer, FormatInfo("No company reference list loaded.")); err != nil {
			slog.Warn("Failed to write company list notice", "error", err)
		}
		return
	}

	for _, c := range p.companies {
		if _, err := fmt.Fprintf(p.writer, "  %s\n", c.Display()); err != nil {
			slog.Warn("Failed to write company entry", "error", err)
			return
		}
	}
}

func splitCodes(input string) []string {
	if input == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	codes := []string{}
	for _, part := range strings.Split(input, ",") {
		code := strings.TrimSpace(part)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}

	var both []string
	for _, s := range b {
		if _, ok := set[s]; ok {
			both = append(both, s)
		}
	}
	return both
}

// Ensure Prompter implements the session.Prompter interface.
var _ session.Prompter = (*Prompter)(nil)
