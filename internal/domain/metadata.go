package domain

// CoinMetadata describes a fungible asset as returned by its ft_metadata view.
// Corresponds to the NEP-148 metadata object.
type CoinMetadata struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Icon     *string `json:"icon,omitempty"` // data URL (nullable)
	Decimals uint8   `json:"decimals"`
}

// NativeCoinMetadata is the metadata of the native coin.
var NativeCoinMetadata = CoinMetadata{
	Name:     "NEAR",
	Symbol:   "NEAR",
	Decimals: 24,
}
