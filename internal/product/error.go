package product

import "github.com/shop24h/shop24h/internal/errorutil"

var ErrNotFound = errorutil.New("product not found")
