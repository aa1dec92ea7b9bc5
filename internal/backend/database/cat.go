package database

// PageSize is the maximum number of cats returned by one ListCats call.
const PageSize = 20

// LookupTable names a deduplicating value table with an id-0 sentinel row.
type LookupTable string

const (
	BicmidTable    LookupTable = "Bicmid"
	UrlOriginTable LookupTable = "UrlOrigin"
)

func (t LookupTable) valid() bool {
	return t == BicmidTable || t == UrlOriginTable
}

type Cat struct {
	ID  int64  `json:"id"`
	URL string `json:"url"` // UrlOrigin.value + Cat.url_path
}
