// Package barcode normalizes scanned barcodes into the query form the
// catalog endpoint expects. UPC-E codes are expanded to UPC-A before
// formatting; EAN codes pass through untouched.
package barcode

import (
	"fmt"
	"regexp"
)

var nonDigit = regexp.MustCompile(`\D`)

// ExpandUPCE expands a 6-digit UPC-E code to its 12-digit UPC-A equivalent
// using the standard compression-suffix rules. Number system 0 is assumed.
func ExpandUPCE(upce string) (string, error) {
	if len(upce) != 6 {
		return "", fmt.Errorf("UPC-E must be 6 digits, got %d", len(upce))
	}

	d := upce
	var upca string
	switch last := d[5]; {
	case last == '0' || last == '1' || last == '2':
		// Manufacturer code ends with the suffix digit
		upca = "0" + d[0:2] + string(last) + "0000" + d[2:5]
	case last == '3':
		upca = "0" + d[0:3] + "00000" + d[3:5]
	case last == '4':
		upca = "0" + d[0:4] + "00000" + d[4:5]
	default:
		upca = "0" + d[0:5] + "0000" + d[5:6]
	}
	return upca + checkDigit(upca), nil
}

// checkDigit computes the UPC-A check digit over the leading 11 digits
func checkDigit(digits string) string {
	sum := 0
	for i, r := range digits {
		n := int(r - '0')
		if i%2 == 0 {
			sum += n * 3
		} else {
			sum += n
		}
	}
	return fmt.Sprintf("%d", (10-sum%10)%10)
}

// Format strips non-digits and normalizes the barcode for catalog queries.
// UPC-A (and expanded UPC-E) codes are space-grouped the way the catalog
// search endpoint indexes them; EAN-8 and EAN-13 pass through as-is.
func Format(raw string) (string, error) {
	barcode := nonDigit.ReplaceAllString(raw, "")

	switch len(barcode) {
	case 12:
		return groupUPCA(barcode), nil
	case 6:
		upca, err := ExpandUPCE(barcode)
		if err != nil {
			return "", err
		}
		return groupUPCA(upca), nil
	case 8, 13:
		return barcode, nil
	default:
		return "", fmt.Errorf("unrecognized barcode length: %d", len(barcode))
	}
}

func groupUPCA(upca string) string {
	return fmt.Sprintf("%s %s %s %s", upca[0:1], upca[1:6], upca[6:11], upca[11:12])
}
