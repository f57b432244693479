package utils

import (
	"fmt"
	"net"
	"strings"
)

// ValidateAddress 校验IP地址或主机名。地址会被拼进远程shell命令，
// 因此字符集必须受限。
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address must not be empty")
	}
	if net.ParseIP(addr) != nil {
		return nil
	}
	if len(addr) > 253 {
		return fmt.Errorf("hostname too long: %s", addr)
	}
	for _, char := range addr {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') || char == '-' || char == '.') {
			return fmt.Errorf("hostname contains invalid character: %s", addr)
		}
	}
	if strings.HasPrefix(addr, "-") || strings.HasSuffix(addr, "-") {
		return fmt.Errorf("hostname must not start or end with a hyphen: %s", addr)
	}
	return nil
}

func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be in range 1-65535: %d", port)
	}
	return nil
}

// ValidatePath 拒绝含shell元字符的路径，这些路径会被拼进远程命令
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path must not be empty")
	}
	dangerous := []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", " "}
	for _, char := range dangerous {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains invalid character %q: %s", char, path)
		}
	}
	return nil
}
