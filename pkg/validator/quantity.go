package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity 表示 "<amount> <symbol>" 形式的转账数量。
type Quantity struct {
	Amount decimal.Decimal
	Symbol string
}

// String 按 "<amount> <symbol>" 格式输出，保留原始精度。
func (q Quantity) String() string {
	return FormatQuantity(q.Amount, q.Symbol)
}

var (
	errQuantityNoSeparator = errors.New("quantity must be formatted as \"<amount> <symbol>\"")
	errQuantityEmptySymbol = errors.New("quantity symbol must not be empty")
)

// ParseQuantity 按空白切分数量字符串，取第一段为金额、第二段为符号，多余部分忽略。
func ParseQuantity(raw string) (Quantity, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", raw, errQuantityNoSeparator)
	}
	if len(fields) < 2 {
		if strings.TrimSpace(raw) != raw {
			return Quantity{}, fmt.Errorf("invalid quantity %q: %w", raw, errQuantityEmptySymbol)
		}
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", raw, errQuantityNoSeparator)
	}
	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity amount %q: %w", fields[0], err)
	}
	return Quantity{Amount: amount, Symbol: fields[1]}, nil
}

// FormatQuantity 生成余额与转账使用的 "<amount> <symbol>" 字符串。
func FormatQuantity(amount decimal.Decimal, symbol string) string {
	exp := amount.Exponent()
	if exp < 0 {
		return amount.StringFixed(-exp) + " " + symbol
	}
	return amount.String() + " " + symbol
}

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidateCallback 确保回调标识是点分隔的脚本标识符路径。
func ValidateCallback(token string) error {
	if token == "" {
		return errors.New("callback is required")
	}
	if !callbackPattern.MatchString(token) {
		return fmt.Errorf("invalid callback %q", token)
	}
	return nil
}
