package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"splitflap"
	"splitflap/internal/logger"
)

// Text content gets the top five rows; the bottom row is the status bar.
const textRows = splitflap.BoardRows - 1

// FrameDecorator overlays a time/weather status bar onto text-mode content.
// Layout-mode content passes through untouched. The weather source is
// optional and best-effort: on any failure the bar shows time only.
type FrameDecorator struct {
	weather WeatherSource
	log     *logger.Logger
	now     func() time.Time
}

func NewFrameDecorator(weather WeatherSource, log *logger.Logger) *FrameDecorator {
	return &FrameDecorator{
		weather: weather,
		log:     log,
		now:     time.Now,
	}
}

// Decorate renders content into a full frame. Pre-rendered layouts are
// returned exactly as stored.
func (d *FrameDecorator) Decorate(ctx context.Context, content splitflap.GeneratedContent) ([][]int, error) {
	if content.OutputMode == splitflap.OutputLayout {
		if content.Layout == nil {
			return nil, fmt.Errorf("layout content has no character codes")
		}
		return content.Layout.CharacterCodes, nil
	}

	grid := splitflap.BlankGrid()
	for i, line := range wrapText(content.Text, splitflap.BoardCols, textRows) {
		grid[i] = splitflap.RenderLine(line)
	}
	grid[splitflap.BoardRows-1] = d.statusBar(ctx)
	return grid, nil
}

// statusBar renders "HH:MM" on the left and, when available, the current
// temperature on the right.
func (d *FrameDecorator) statusBar(ctx context.Context) []int {
	bar := splitflap.RenderLine(d.now().Format("15:04"))

	if d.weather == nil {
		return bar
	}
	cond, err := d.weather.CurrentConditions(ctx)
	if err != nil {
		d.log.Warnw("weather lookup failed; status bar shows time only", "err", err)
		return bar
	}

	temp := fmt.Sprintf("%d°", int(cond.TempC))
	codes := make([]int, 0, len(temp))
	for _, r := range temp {
		codes = append(codes, splitflap.CharCode(r))
	}
	start := splitflap.BoardCols - len(codes)
	if start < 0 {
		return bar
	}
	for i, c := range codes {
		bar[start+i] = c
	}
	return bar
}

// wrapText word-wraps s into at most maxLines lines of at most width runes.
// Words longer than a full line are hard-split. Overflow is dropped.
func wrapText(s string, width, maxLines int) []string {
	words := strings.Fields(s)
	lines := make([]string, 0, maxLines)
	current := ""

	flush := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}

	for _, word := range words {
		for len([]rune(word)) > width {
			flush()
			if len(lines) >= maxLines {
				return lines[:maxLines]
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		switch {
		case current == "":
			current = word
		case len([]rune(current))+1+len([]rune(word)) <= width:
			current += " " + word
		default:
			flush()
			current = word
		}
		if len(lines) >= maxLines {
			return lines[:maxLines]
		}
	}
	flush()
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
