package redis

import "fmt"

const keyPrefix = "storefront"

// OrderLimitKey 下单限流键，subject 为手机号或客户端 IP。
func OrderLimitKey(kind, subject string) string {
	return fmt.Sprintf("%s:rate_limit:order:%s:%s", keyPrefix, kind, subject)
}
