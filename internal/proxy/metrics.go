package proxy

import "expvar"

var (
	connectionsAccepted = expvar.NewInt("socks5_connections_accepted")
	connectionsFailed   = expvar.NewInt("socks5_connections_failed")
	admissionTimeouts   = expvar.NewInt("socks5_admission_timeouts")
	bytesUp             = expvar.NewInt("socks5_bytes_up")
	bytesDown           = expvar.NewInt("socks5_bytes_down")
)
