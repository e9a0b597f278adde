package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ TokenStore     = (*MemoryTokenStore)(nil)
	_ TrustService   = (*Manager)(nil)
	_ ChangeListener = (*ChangeListenerFuncs)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
