package cli

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/CortexFolio/internal/models"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// parseTickers splits a comma or space separated list into upper-cased
// tickers, dropping duplicates.
func parseTickers(s string) ([]string, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		t := strings.ToUpper(strings.TrimSpace(f))
		if t == "" || seen[t] {
			continue
		}
		if !tickerPattern.MatchString(t) {
			return nil, fmt.Errorf("invalid ticker %q (use letters, numbers, dots and hyphens)", t)
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

func validateTickers(val interface{}) error {
	_, err := parseTickers(val.(string))
	return err
}

func validateEmail(val interface{}) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(val.(string))); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

func validateBudget(val interface{}) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(val.(string)), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("budget must be a positive number")
	}
	return nil
}

// PromptForPreferences asks for the trading preferences, using the values
// already in defaults as the suggested answers.
func PromptForPreferences(defaults models.UserPreferences) (models.UserPreferences, error) {
	budget := ""
	if defaults.Budget > 0 {
		budget = strconv.FormatFloat(defaults.Budget, 'f', -1, 64)
	}
	risk := string(defaults.Risk)
	if risk == "" {
		risk = string(models.RiskMedium)
	}
	mode := string(defaults.Mode)
	if mode == "" {
		mode = string(models.ModeVirtual)
	}
	strategy := string(defaults.Strategy)
	if strategy == "" {
		strategy = string(models.StrategySwing)
	}

	questions := []*survey.Question{
		{
			Name:     "email",
			Prompt:   &survey.Input{Message: "Email:", Default: defaults.Email},
			Validate: validateEmail,
		},
		{
			Name:     "budget",
			Prompt:   &survey.Input{Message: "Budget (USD):", Default: budget},
			Validate: validateBudget,
		},
		{
			Name: "risk",
			Prompt: &survey.Select{
				Message: "Risk level:",
				Options: []string{string(models.RiskLow), string(models.RiskMedium), string(models.RiskHigh)},
				Default: risk,
			},
		},
		{
			Name: "mode",
			Prompt: &survey.Select{
				Message: "Execution mode:",
				Options: []string{string(models.ModeVirtual), string(models.ModeLive)},
				Default: mode,
				Help:    "Live orders are recorded as pending; nothing is routed to a broker.",
			},
		},
		{
			Name: "strategy",
			Prompt: &survey.Select{
				Message: "Strategy:",
				Options: []string{
					string(models.StrategyDayTrading), string(models.StrategySwing),
					string(models.StrategyLongTerm), string(models.StrategyScalping),
				},
				Default: strategy,
			},
		},
		{
			Name: "stocks",
			Prompt: &survey.Input{
				Message: "Tickers (comma separated, empty to let the agent choose):",
				Default: strings.Join(defaults.Stocks, ","),
			},
			Validate: validateTickers,
		},
		{
			Name:   "query",
			Prompt: &survey.Input{Message: "Anything else the planner should know?", Default: defaults.Query},
		},
	}

	answers := struct {
		Email    string
		Budget   string
		Risk     string
		Mode     string
		Strategy string
		Stocks   string
		Query    string
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return defaults, err
	}

	out := defaults
	out.Email = strings.TrimSpace(answers.Email)
	out.Budget, _ = strconv.ParseFloat(strings.TrimSpace(answers.Budget), 64)
	out.Risk = models.RiskLevel(answers.Risk)
	out.Mode = models.ExecutionMode(answers.Mode)
	out.Strategy = models.Strategy(answers.Strategy)
	out.Stocks, _ = parseTickers(answers.Stocks)
	out.Query = strings.TrimSpace(answers.Query)
	return out, nil
}
