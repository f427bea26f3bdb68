//go:build tools

// Package kind4_archive pins mockgen, which the go:generate lines in repositories and
// services run to refresh mocks/.
package kind4_archive

import (
	_ "go.uber.org/mock/mockgen"
)
