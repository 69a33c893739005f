package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
	"github.com/samber/lo"
)

var (
	providerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6366F1")).Bold(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4757")).Bold(true)
)

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// interactive reports whether prompts and spinners can be shown
func interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// spin runs action behind a spinner on a terminal and plainly otherwise
func spin(tty bool, title string, action func()) {
	if !tty {
		action()
		return
	}
	_ = spinner.New().
		Title(title).
		Type(spinner.Dots).
		Action(action).
		Run()
}

func confirm(title string) (bool, error) {
	answer := true
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&answer).
		Run()
	return answer, err
}

func prompt(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		},
	}
	value, err := p.Run()
	return strings.TrimSpace(value), err
}

// formatTried renders tried provider indices one-based, e.g. "#1, #3 of 5"
func formatTried(tried []int, total int) string {
	if len(tried) == 0 {
		return "none"
	}
	labels := lo.Map(tried, func(i int, _ int) string { return "#" + strconv.Itoa(i+1) })
	return strings.Join(labels, ", ") + " of " + strconv.Itoa(total)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
