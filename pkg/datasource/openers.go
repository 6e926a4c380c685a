package datasource

import (
	"fmt"
	"sync"
)

var (
	openersMu sync.RWMutex
	openers   = make(map[string]Opener)
)

// Register makes an opener available under a dialect name. Called from the
// init of each dialect package; a duplicate registration panics.
func Register(dbType string, opener Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	if _, dup := openers[dbType]; dup {
		panic(fmt.Sprintf("datasource: opener for %q registered twice", dbType))
	}
	openers[dbType] = opener
}

// openerFor returns the registered opener for a dialect.
func openerFor(dbType string) (Opener, error) {
	openersMu.RLock()
	defer openersMu.RUnlock()
	opener, ok := openers[dbType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	return opener, nil
}

// SupportedTypes lists the registered dialect names.
func SupportedTypes() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	types := make([]string, 0, len(openers))
	for t := range openers {
		types = append(types, t)
	}
	return types
}
