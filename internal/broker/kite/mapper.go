package kite

import (
	"sync"
)

// instrumentMapper manages bidirectional mapping between trading
// symbols and Kite instrument tokens.
type instrumentMapper struct {
	symbolToToken map[string]uint32
	tokenToSymbol map[uint32]string
	mu            sync.RWMutex
}

func newInstrumentMapper(tokens map[string]uint32) *instrumentMapper {
	im := &instrumentMapper{
		symbolToToken: make(map[string]uint32, len(tokens)),
		tokenToSymbol: make(map[uint32]string, len(tokens)),
	}
	for symbol, token := range tokens {
		im.symbolToToken[symbol] = token
		im.tokenToSymbol[token] = symbol
	}
	return im
}

func (im *instrumentMapper) getToken(symbol string) (uint32, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, exists := im.symbolToToken[symbol]
	return token, exists
}

func (im *instrumentMapper) getSymbol(token uint32) string {
	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.tokenToSymbol[token]
}
