package main

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// errCancelled is returned when the user backs out of a dialog
var errCancelled = errors.New("cancelled")

// Prompter asks the user one question at a time
type Prompter interface {
	Input(message, help, def string) (string, error)
	Password(message, help string) (string, error)
	Select(message string, options []string, def string) (string, error)
	MultiSelect(message string, options, defaults []string) ([]string, error)
	Confirm(message string, def bool) (bool, error)
}

// surveyPrompter prompts on the terminal
type surveyPrompter struct{}

func (surveyPrompter) Input(message, help, def string) (string, error) {
	var v string
	err := survey.AskOne(&survey.Input{Message: message + ":", Help: help, Default: def}, &v)
	return v, interrupted(err)
}

func (surveyPrompter) Password(message, help string) (string, error) {
	var v string
	err := survey.AskOne(&survey.Password{Message: message + ":", Help: help}, &v)
	return v, interrupted(err)
}

func (surveyPrompter) Select(message string, options []string, def string) (string, error) {
	prompt := &survey.Select{Message: message + ":", Options: options}
	// survey rejects a default that is not one of the options
	if contains(options, def) {
		prompt.Default = def
	}
	var v string
	err := survey.AskOne(prompt, &v)
	return v, interrupted(err)
}

func (surveyPrompter) MultiSelect(message string, options, defaults []string) ([]string, error) {
	prompt := &survey.MultiSelect{Message: message + ":", Options: options}
	var defs []string
	for _, d := range defaults {
		if contains(options, d) {
			defs = append(defs, d)
		}
	}
	if len(defs) > 0 {
		prompt.Default = defs
	}
	var v []string
	err := survey.AskOne(prompt, &v)
	return v, interrupted(err)
}

func (surveyPrompter) Confirm(message string, def bool) (bool, error) {
	var v bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &v)
	return v, interrupted(err)
}

func interrupted(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errCancelled
	}
	return err
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
