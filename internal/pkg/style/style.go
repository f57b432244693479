package style

// ANSI转义序列，用于增强远程进程输出的可读性
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	fail  = "\033[91m"
	warn  = "\033[93m"
)

// Bold 返回加粗显示的文本
func Bold(s string) string {
	return bold + s + reset
}

// Fail 返回失败样式（红色）的文本
func Fail(s string) string {
	return fail + s + reset
}

// Warn 返回警告样式（黄色）的文本
func Warn(s string) string {
	return warn + s + reset
}
