package redis

import "fmt"

// Константы для префиксов ключей
const (
	KeyPrefixPool         = "pool"
	KeyPrefixDealerPool   = "pool:dealers"
	KeyPrefixSupplierPool = "pool:suppliers"
	KeyPrefixCustomer     = "customer"
	KeyPrefixDealer       = "dealer"
)

// GenerateKey генерирует ключ для кеша
func GenerateKey(prefix, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}
