package service

import (
	"errors"
	"fmt"
	"strconv"

	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"
)

// Settings keys for persisted pipeline parameters.
const (
	keyInterval     = "pipeline.interval_ms"
	keyWindow       = "pipeline.window"
	keyZWindow      = "pipeline.z_window"
	keyMethod       = "pipeline.method"
	keyMinLiquidity = "pipeline.min_liquidity"
	keyEntry        = "pipeline.entry_threshold"
	keyExit         = "pipeline.exit_threshold"
)

var paramKeys = []string{keyInterval, keyWindow, keyZWindow, keyMethod, keyMinLiquidity, keyEntry, keyExit}

// SaveParams writes every parameter as its own settings row.
func SaveParams(repo domain.SettingsRepository, p analytics.Params) error {
	values := map[string]string{
		keyInterval:     strconv.FormatInt(p.IntervalMS, 10),
		keyWindow:       strconv.Itoa(p.Window),
		keyZWindow:      strconv.Itoa(p.ZWindow),
		keyMethod:       string(p.Method),
		keyMinLiquidity: strconv.FormatFloat(p.MinLiquidity, 'g', -1, 64),
		keyEntry:        strconv.FormatFloat(p.EntryThreshold, 'g', -1, 64),
		keyExit:         strconv.FormatFloat(p.ExitThreshold, 'g', -1, 64),
	}
	for k, v := range values {
		if err := repo.SaveConfig(k, v); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return nil
}

// LoadParams overlays stored settings onto base. Missing keys keep base
// values; a stored set that fails to parse or validate is rejected as a
// whole with a *domain.ParamsError naming the settings key.
func LoadParams(repo domain.SettingsRepository, base analytics.Params) (analytics.Params, error) {
	stored, err := repo.LoadConfigMap()
	if err != nil {
		return base, err
	}

	p := base
	var parseErr error
	parse := func(key string, apply func(v string) error) {
		v, ok := stored[key]
		if !ok || parseErr != nil {
			return
		}
		if err := apply(v); err != nil {
			parseErr = domain.NewParamsError(key, "stored value %q: %v", v, err)
		}
	}

	parse(keyInterval, func(v string) (err error) {
		p.IntervalMS, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse(keyWindow, func(v string) (err error) {
		p.Window, err = strconv.Atoi(v)
		return err
	})
	parse(keyZWindow, func(v string) (err error) {
		p.ZWindow, err = strconv.Atoi(v)
		return err
	})
	parse(keyMinLiquidity, func(v string) (err error) {
		p.MinLiquidity, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse(keyEntry, func(v string) (err error) {
		p.EntryThreshold, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse(keyExit, func(v string) (err error) {
		p.ExitThreshold, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse(keyMethod, func(v string) (err error) {
		p.Method, err = domain.ParseMethod(v)
		return err
	})
	if parseErr != nil {
		return base, parseErr
	}

	if err := p.Validate(); err != nil {
		var pe *domain.ParamsError
		if errors.As(err, &pe) {
			return base, domain.NewParamsError("pipeline."+pe.Field, "stored value: %s", pe.Reason)
		}
		return base, err
	}
	return p, nil
}

// ClearParams removes every stored parameter row.
func ClearParams(repo domain.SettingsRepository) error {
	for _, k := range paramKeys {
		if err := repo.DeleteConfig(k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}

// Settings keys for the persisted pair.
const (
	keyPairA = "pair.symbol_a"
	keyPairB = "pair.symbol_b"
)

// SavePair stores the monitored pair.
func SavePair(repo domain.SettingsRepository, symbolA, symbolB string) error {
	if err := repo.SaveConfig(keyPairA, symbolA); err != nil {
		return fmt.Errorf("save %s: %w", keyPairA, err)
	}
	if err := repo.SaveConfig(keyPairB, symbolB); err != nil {
		return fmt.Errorf("save %s: %w", keyPairB, err)
	}
	return nil
}

// LoadPair returns the stored pair. ok is false unless both legs are stored.
func LoadPair(repo domain.SettingsRepository) (symbolA, symbolB string, ok bool, err error) {
	stored, err := repo.LoadConfigMap()
	if err != nil {
		return "", "", false, err
	}
	symbolA, symbolB = stored[keyPairA], stored[keyPairB]
	if symbolA == "" || symbolB == "" {
		return "", "", false, nil
	}
	return symbolA, symbolB, true, nil
}
