package main

import (
	"errors"
	"fmt"

	"github.com/networkteam/pagecheck/journey"
	"github.com/networkteam/pagecheck/scenario"
)

func validate(scenarios []scenario.Scenario) error {
	errs := []error{scenario.ValidateAll(scenarios)}
	for _, s := range scenarios {
		if !journey.Has(s) {
			errs = append(errs, fmt.Errorf("scenario %q: %w", s.ID, journey.ErrUnknownScenario))
		}
	}
	return errors.Join(errs...)
}
