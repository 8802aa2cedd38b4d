package types

import "strings"

const maskFill = "********"

// Mask hides the middle of a secret, keeping a four character prefix and a
// two character suffix the way the console lists access keys.
// Values too short to keep both ends are fully hidden. Lengths count runes,
// so multi-byte secrets stay valid UTF-8.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	r := []rune(secret)
	if len(r) <= 8 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:4]) + maskFill + string(r[len(r)-2:])
}

// Masked returns a copy of c with every credential value masked
func (c Cloud) Masked() Cloud {
	out := c.Clone()
	if out.Credentials == nil {
		return out
	}
	for _, key := range out.Credentials.Keys() {
		if v := out.Credentials.Get(key); v != "" {
			out.Credentials.Set(key, Mask(v))
		}
	}
	return out
}
