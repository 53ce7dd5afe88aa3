package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ASSETLINE_TEST_MODE") == "" {
			_ = os.Setenv("ASSETLINE_TEST_MODE", "1")
		}
	})
}
