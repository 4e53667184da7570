package preview

import (
	"strings"
	"unicode/utf8"
)

// SMS limits.
const (
	SMSCharLimit        = 612
	gsmSingleFragment   = 160
	gsmMultiFragment    = 153
	ucs2SingleFragment  = 70
	ucs2MultiFragment   = 67
	letterLineWidth     = 70
	letterFirstPageRows = 28
	letterPageRows      = 48
)

const gsmBasic = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
	"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"

// Extension characters cost two septets.
const gsmExtended = "^{}\\[~]|€"

// smsLength returns the billable length of body and whether it needs the
// unicode encoding.
func smsLength(body string) (int, bool) {
	count := 0
	for _, r := range body {
		switch {
		case strings.ContainsRune(gsmBasic, r):
			count++
		case strings.ContainsRune(gsmExtended, r):
			count += 2
		default:
			return utf8.RuneCountInString(body), true
		}
	}
	return count, false
}

func fragments(chars int, unicode bool) int {
	if chars == 0 {
		return 0
	}
	single, multi := gsmSingleFragment, gsmMultiFragment
	if unicode {
		single, multi = ucs2SingleFragment, ucs2MultiFragment
	}
	if chars <= single {
		return 1
	}
	return (chars + multi - 1) / multi
}

// PageCount estimates printed pages by wrapping each body line. The address
// block takes the top of the first page.
func PageCount(body string) int {
	rows := 0
	for _, line := range strings.Split(body, "\n") {
		n := utf8.RuneCountInString(line)
		if n == 0 {
			rows++
			continue
		}
		rows += (n + letterLineWidth - 1) / letterLineWidth
	}
	if rows <= letterFirstPageRows {
		return 1
	}
	rows -= letterFirstPageRows
	return 1 + (rows+letterPageRows-1)/letterPageRows
}
