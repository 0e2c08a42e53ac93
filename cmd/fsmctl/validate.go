package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rainbowassets/gamefsm/demo"
	"github.com/rainbowassets/gamefsm/logger"
	"github.com/rainbowassets/gamefsm/script"
	"github.com/rainbowassets/gamefsm/statemachine"
	"github.com/rainbowassets/gamefsm/statemachine/validator"
)

var (
	errUnknownVocabulary = errors.New("unknown vocabulary")
	errCompressedFix     = errors.New("fixes can only be written to plain .yaml assets")
	errNotConfirmed      = errors.New("fixes need confirmation; pass -yes when not on a terminal")
)

func (a *app) validate(ctx context.Context, args []string) error {
	fs := a.flags("validate")
	strict := fs.Bool("strict", false, "treat warnings as errors")
	fix := fs.Bool("fix", false, "apply automatic fixes and rewrite the asset")
	yes := fs.Bool("yes", false, "apply fixes without asking")
	vocabulary := fs.String("vocabulary", "", "warn about kinds the named collaborator set does not handle (demo)")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	rules, err := validationRules(*vocabulary)
	if err != nil {
		return script.ExitWithError(err)
	}

	files := fs.Args()
	if len(files) == 0 {
		file, err := a.pick(".")
		if err != nil {
			return script.ExitWithError(err)
		}

		files = []string{file}
	}

	failed := 0

	for _, file := range files {
		ok, err := a.validateFile(ctx, file, rules, *strict, *fix, *yes)
		if err != nil {
			logger.Get(ctx).Error("Validation failed", "file", file, "error", err)
		}

		if !ok || err != nil {
			failed++
		}
	}

	if failed > 0 {
		return script.Exit(1)
	}

	return nil
}

func validationRules(vocabulary string) ([]validator.Rule, error) {
	rules := validator.AllRules()

	switch vocabulary {
	case "":
	case "demo":
		rules = append(rules, validator.NewVocabularyRule(demo.HandledPredicates(), demo.HandledActions()))
	default:
		return nil, fmt.Errorf("%w %q", errUnknownVocabulary, vocabulary)
	}

	return rules, nil
}

func check(config *statemachine.Config, rules []validator.Rule, strict bool) validator.ValidationResult {
	if strict {
		return validator.ValidateWithRulesStrict(config, rules)
	}

	return validator.ValidateWithRules(config, rules)
}

func (a *app) validateFile(ctx context.Context, file string, rules []validator.Rule, strict, fix, yes bool) (bool, error) {
	config, err := validator.ReadConfig(file)
	if err != nil {
		fmt.Fprintf(a.out, "%s\n✗ %v\n", file, err)

		return false, nil
	}

	result := check(config, rules, strict)
	fmt.Fprintf(a.out, "%s\n%s", file, result)

	if !fix {
		return result.Valid, nil
	}

	fixes := result.Fixes(strict)
	if len(fixes) == 0 {
		return result.Valid, nil
	}

	if !isPlainYAML(file) {
		return false, errCompressedFix
	}

	if !yes {
		if !a.interactive() {
			return false, errNotConfirmed
		}

		confirmed, err := a.confirm(fmt.Sprintf("Apply %d fix(es) to %s", len(fixes), file))
		if err != nil {
			return false, err
		}

		if !confirmed {
			return result.Valid, nil
		}
	}

	if err := validator.ApplyFixes(config, fixes); err != nil {
		return false, err
	}

	if err := writeConfig(file, config); err != nil {
		return false, err
	}

	for _, f := range fixes {
		fmt.Fprintf(a.out, "  fixed: %s\n", f.Description)
	}

	logger.Get(ctx).Info("Applied fixes", "file", file, "fixes", len(fixes))

	result = check(config, rules, strict)
	fmt.Fprint(a.out, result)

	return result.Valid, nil
}

func isPlainYAML(file string) bool {
	ext := strings.ToLower(filepath.Ext(file))

	return ext == ".yaml" || ext == ".yml"
}

func writeConfig(file string, config *statemachine.Config) error {
	info, err := os.Stat(file)
	if err != nil {
		return err
	}

	data, err := statemachine.MarshalConfig(config)
	if err != nil {
		return err
	}

	return os.WriteFile(file, data, info.Mode().Perm())
}
