//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"syscall/js"
	"time"

	"evfmap/internal/adapter/cache"
	"evfmap/internal/adapter/listing"
	"evfmap/internal/adapter/render"
	"evfmap/internal/usecase"
)

var (
	results *cache.ResultCache
	mappers map[bool]*cache.CachedMapper
)

func init() {
	results = cache.NewResultCache(64, 30*time.Minute)
	mappers = make(map[bool]*cache.CachedMapper)
	for _, chain := range []bool{false, true} {
		uc := usecase.NewMapUseCase(listing.NewParser(), usecase.MapOptions{Chain: chain}, nil)
		key := usecase.ContentKey
		if chain {
			key = func(text string) string { return "chain:" + usecase.ContentKey(text) }
		}
		mappers[chain] = cache.NewCachedMapper(uc, results, key)
	}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("evfmapMap", js.FuncOf(mapListing))
	js.Global().Set("evfmapClear", js.FuncOf(clearCache))
	js.Global().Set("evfmapStats", js.FuncOf(getStats))

	<-c
}

// mapListing takes the listing text and an optional chain flag and returns the
// diagnostics keyed by path as JSON.
func mapListing(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: evfmapMap(text, [chain])")
	}

	chain := len(args) > 1 && args[1].Truthy()
	res, err := mappers[chain].Map(args[0].String())
	if err != nil {
		return makeError(err.Error())
	}

	var buf bytes.Buffer
	if err := render.New(&buf, render.Options{Format: render.FormatJSON}).Map(res); err != nil {
		return makeError("encoding failed: " + err.Error())
	}
	return buf.String()
}

func clearCache(this js.Value, args []js.Value) interface{} {
	results.Invalidate()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	stats := results.Stats()
	return makeResult(map[string]interface{}{
		"entries": stats.Entries,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
