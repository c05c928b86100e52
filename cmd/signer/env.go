package main

import (
	"strconv"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

// envDefaults reads flag defaults from the environment; unparsable values keep the
// built-in default.
type envDefaults struct {
	cfg *config.Config
}

func (e envDefaults) strOr(key, def string) string {
	if v := e.cfg.GetString(key); v != "" {
		return v
	}
	return def
}

func (e envDefaults) intOr(key string, def int) int {
	v := e.cfg.GetString(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		zlog.Logger.Warn().Str("env", key).Str("value", v).Msg("ignoring non-integer env value")
		return def
	}
	return n
}

func (e envDefaults) floatOr(key string, def float64) float64 {
	v := e.cfg.GetString(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		zlog.Logger.Warn().Str("env", key).Str("value", v).Msg("ignoring non-numeric env value")
		return def
	}
	return f
}

func (e envDefaults) boolOr(key string, def bool) bool {
	v := e.cfg.GetString(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		zlog.Logger.Warn().Str("env", key).Str("value", v).Msg("ignoring non-boolean env value")
		return def
	}
	return b
}
