package utils

import (
	"log"
	"regexp"
	"strconv"
	"strings"
)

// priceRegex finds the first price-looking number in a string.
// It handles integers (1,079), decimals (119.00), and thousands separators.
var priceRegex = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParsePrice cleans a price string such as "Retail price $25.00" and converts it to a float64.
// It reports false when no number could be found.
func ParsePrice(priceStr string) (float64, bool) {
	if strings.TrimSpace(priceStr) == "" {
		return 0, false
	}

	foundPrice := priceRegex.FindString(priceStr)
	if foundPrice == "" {
		return 0, false
	}

	cleanedStr := strings.ReplaceAll(foundPrice, ",", "")

	price, err := strconv.ParseFloat(cleanedStr, 64)
	if err != nil {
		log.Printf("ParsePrice: Failed to parse '%s' from original string '%s': %v", cleanedStr, priceStr, err)
		return 0, false
	}

	return price, true
}
