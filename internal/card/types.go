package card

// Brand is an enumerated card brand.
type Brand string

const (
	Visa            Brand = "visa"
	Mastercard      Brand = "mc"
	AmericanExpress Brand = "amex"
	DinersClub      Brand = "diners"
	Discover        Brand = "discover"
	JCB             Brand = "jcb"
	Maestro         Brand = "maestro"
	UnionPay        Brand = "cup"
	Elo             Brand = "elo"
	Hipercard       Brand = "hipercard"
)

// iinRange is an inclusive numeric prefix range. Start and end have the same
// length; a number matches when its prefix of that length falls inside.
type iinRange struct {
	start string
	end   string
}

func rng(start, end string) iinRange { return iinRange{start: start, end: end} }
func one(prefix string) iinRange     { return iinRange{start: prefix, end: prefix} }

// brandOrder fixes the iteration order so estimates are deterministic.
var brandOrder = []Brand{
	Visa, Mastercard, AmericanExpress, DinersClub, Discover,
	JCB, Maestro, UnionPay, Elo, Hipercard,
}

// brandRanges is the static BIN-range catalog. Ranges deliberately overlap
// (co-branded and regional schemes); Estimate returns every match and the
// caller narrows against the merchant's supported brands.
var brandRanges = map[Brand][]iinRange{
	Visa: {one("4")},
	Mastercard: {
		rng("51", "55"),
		rng("2221", "2720"),
	},
	AmericanExpress: {one("34"), one("37")},
	DinersClub: {
		rng("300", "305"),
		one("36"),
		one("38"),
	},
	Discover: {
		one("6011"),
		rng("644", "649"),
		one("65"),
		rng("622126", "622925"),
	},
	JCB: {rng("3528", "3589")},
	Maestro: {
		one("5018"), one("5020"), one("5038"),
		one("6304"), one("6759"), rng("6761", "6763"),
	},
	UnionPay: {one("62")},
	Elo: {
		one("4011"), one("4312"), one("4389"),
		one("5041"), rng("5066", "5067"), one("509"),
		one("627780"), one("636297"), one("636368"),
	},
	Hipercard: {one("606282"), one("3841")},
}

// Estimate returns every brand whose BIN ranges match the normalized number,
// including brands that cannot yet be excluded for a short prefix. Numbers
// longer than the maximum card length match nothing.
func Estimate(number string) []Brand {
	_, normalized := ValidateNumber(number)
	if normalized == "" || len(normalized) > maxNumberLength {
		return nil
	}

	var brands []Brand
	for _, b := range brandOrder {
		for _, r := range brandRanges[b] {
			if r.matches(normalized) {
				brands = append(brands, b)
				break
			}
		}
	}
	return brands
}

// matches reports whether the number's prefix falls inside the range. For a
// number shorter than the range prefix it reports whether the number could
// still fall inside once more digits arrive.
func (r iinRange) matches(number string) bool {
	n := len(r.start)
	if len(number) < n {
		// Compare on the digits we have: the truncated bounds bracket every
		// completion of the partial input that could land in the range.
		n = len(number)
	}
	p := number[:n]
	return p >= r.start[:n] && p <= r.end[:n]
}

// Filter intersects estimated brands with the merchant-supported set.
func Filter(candidates []Brand, supported []string) []Brand {
	if len(supported) == 0 {
		return candidates
	}
	allowed := make(map[Brand]bool, len(supported))
	for _, s := range supported {
		allowed[Brand(s)] = true
	}
	var out []Brand
	for _, c := range candidates {
		if allowed[c] {
			out = append(out, c)
		}
	}
	return out
}
