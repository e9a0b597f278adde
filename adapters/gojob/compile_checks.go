package gojob

import "github.com/goliatone/go-trust/core"

var (
	_ MaintenanceService    = (*core.Manager)(nil)
	_ ConnectivityRefresher = (*core.ConnectivityGate)(nil)
)
