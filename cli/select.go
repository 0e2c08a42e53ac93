// Package cli holds the interactive terminal helpers of fsmctl.
package cli

import (
	"errors"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/manifoldco/promptui"
)

// ErrNoChoices is returned by Select when there is nothing to pick.
var ErrNoChoices = errors.New("nothing to select")

const doneItem = "[Done]"

// Select asks the user to pick one of choices, listed in natural order.
// Typing filters by prefix.
func Select(label string, choices ...string) (string, error) {
	if len(choices) == 0 {
		return "", ErrNoChoices
	}

	items := sortedUnique(choices)

	sel := &promptui.Select{
		Label:    label,
		Items:    items,
		Searcher: prefixSearcher(items, false),
	}

	_, value, err := sel.Run()

	return value, err
}

// MultiSelect asks repeatedly until the user picks [Done] or nothing is
// left. The picks are returned in the order of choices.
func MultiSelect(label string, choices ...string) ([]string, error) {
	if len(choices) == 0 {
		return nil, nil
	}

	remaining := sortedUnique(choices)
	picked := make(map[string]bool)

	for len(remaining) > 0 {
		items := append([]string{doneItem}, remaining...)

		sel := &promptui.Select{
			Label:    label,
			Items:    items,
			Searcher: prefixSearcher(items, true),
		}

		idx, value, err := sel.Run()
		if err != nil {
			return nil, err
		}

		if idx == 0 {
			break
		}

		picked[value] = true
		remaining = slices.DeleteFunc(remaining, func(s string) bool { return s == value })
	}

	var out []string

	for _, choice := range choices {
		if picked[choice] && !slices.Contains(out, choice) {
			out = append(out, choice)
		}
	}

	return out, nil
}

func sortedUnique(choices []string) []string {
	items := slices.Clone(choices)
	natsort.Sort(items)

	return slices.Compact(items)
}

// prefixSearcher matches items starting with the typed input. With
// skipFirst the first item ([Done]) never matches.
func prefixSearcher(items []string, skipFirst bool) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" || (skipFirst && index == 0) {
			return false
		}

		return strings.HasPrefix(strings.ToLower(items[index]), strings.ToLower(input))
	}
}
