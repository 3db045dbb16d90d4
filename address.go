package xnet

import (
	"net"
	"strconv"
	"strings"
)

// parseHostPort parses the spec.md §6 "<host>:<port>" scheme-specific
// part for the stream and datagram drivers: host is dotted IPv4, port
// is decimal 0-65535. Per spec.md §9, a trailing "@instance_id"
// routing suffix belongs to the caller's routing layer, not the
// driver, and is stripped here rather than fed to net.SplitHostPort.
func parseHostPort(addr string) (ip net.IP, port int, err error) {
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		addr = addr[:at]
	}
	host, portStr, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		return nil, 0, newError(CodeInvalidParam, splitErr)
	}
	p, convErr := strconv.Atoi(portStr)
	if convErr != nil || p < 0 || p > 65535 {
		return nil, 0, newError(CodeInvalidParam, convErr)
	}
	resolved := net.ParseIP(host)
	if resolved == nil {
		return nil, 0, newError(CodeAddressNotExist, nil)
	}
	v4 := resolved.To4()
	if v4 == nil {
		return nil, 0, newError(CodeAddressNotExist, nil)
	}
	return v4, p, nil
}

// splitSchemeAddr splits "scheme://rest" into its two halves. Per
// spec.md §9's open question, suffixes after the scheme-specific part
// (e.g. "@instance_id") belong to the caller's routing layer, not the
// driver, and are passed through unchanged inside addr.
func splitSchemeAddr(url string) (scheme, addr string, ok bool) {
	i := strings.Index(url, "://")
	if i < 0 {
		return "", "", false
	}
	return url[:i], url[i+3:], true
}
