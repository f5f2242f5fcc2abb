package normattiva

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
)

// Endpoints relative to the Open Data API base.
const (
	pathFormats        = "/tipologiche/estensioni"
	pathSearch         = "/ricerca/semplice"
	pathUpdated        = "/ricerca/aggiornati"
	pathExportSubmit   = "/ricerca-asincrona/nuova-ricerca"
	pathExportConfirm  = "/ricerca-asincrona/conferma-ricerca"
	pathExportStatus   = "/ricerca-asincrona/check-status/"
	pathExportDownload = "/collections/download/collection-asincrona/"
	pathCollection     = "/collections/download/collection-preconfezionata"
	pathDirectAKN      = "/atto/caricaAKN"
)

// actTypeCodes maps the URN act type to the API's denominazioneAtto code.
var actTypeCodes = map[string]string{
	"regio.decreto":                           "PRD",
	"decreto.legislativo":                     "PLL",
	"legge":                                   "PLE",
	"decreto.del.presidente.della.repubblica": "PPR",
	"decreto.legge":                           "PDL",
	"decreto":                                 "DCT",
}

// flexString accepts a JSON string or number. The API is not consistent
// about year and number fields.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// act is one search hit.
type act struct {
	ID         string     `json:"codiceRedazionale"`
	TypeCode   string     `json:"denominazioneAtto"`
	Year       flexString `json:"annoProvvedimento"`
	Number     flexString `json:"numeroProvvedimento"`
	Title      string     `json:"titoloAtto"`
	LastChange string     `json:"dataUltimaModifica"`
}

type searchResponse struct {
	Acts  []act `json:"listaAtti"`
	Found int   `json:"numeroAttiTrovati"`
	Pages int   `json:"numeroPagine"`
}

type pagination struct {
	Page     int `json:"paginaCorrente"`
	PageSize int `json:"numeroElementiPerPagina"`
}

type searchRequest struct {
	Query      string     `json:"testoRicerca"`
	Pagination pagination `json:"paginazione"`
}

type updatedRequest struct {
	From string `json:"dataInizioAggiornamento"`
	To   string `json:"dataFineAggiornamento"`
}

type format struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type exportParams struct {
	TypeCode string `json:"denominazioneAtto"`
	Number   int    `json:"numeroProvvedimento"`
	Year     int    `json:"annoProvvedimento"`
}

type exportRequest struct {
	Format     string       `json:"formato"`
	SearchType string       `json:"tipoRicerca"`
	Export     string       `json:"richiestaExport"`
	Params     exportParams `json:"parametriRicerca"`
}

type confirmRequest struct {
	Token string `json:"token"`
}

// Export job states reported by check-status.
const (
	exportStateDone   = 3
	exportStateFailed = 4
)

type exportStatus struct {
	State       int    `json:"stato"`
	Description string `json:"descrizioneStato"`
	Percent     int    `json:"percentuale"`
}

// urnPattern matches "urn:nir:stato:decreto.legislativo:2005-09-06;206".
var urnPattern = regexp.MustCompile(`urn:nir:\w+:([^:]+):(\d{4})-\d{2}-\d{2};(\d+)`)

// actRef is what a URN tells us about an act.
type actRef struct {
	Type   string
	Year   int
	Number int
}

func parseURN(urn string) (actRef, bool) {
	m := urnPattern.FindStringSubmatch(urn)
	if m == nil {
		return actRef{}, false
	}
	year, _ := strconv.Atoi(m[2])
	number, _ := strconv.Atoi(m[3])
	return actRef{Type: m[1], Year: year, Number: number}, true
}

// matches reports whether a hit has the act's year and number.
func (r actRef) matches(a act) bool {
	return string(a.Year) == strconv.Itoa(r.Year) && string(a.Number) == strconv.Itoa(r.Number)
}

// pickAct chooses the hit describing the source's act: exact on year,
// number and type code, then year and number alone. Without a URN the first
// hit is taken.
func pickAct(hits []act, urn string) (act, bool) {
	if len(hits) == 0 {
		return act{}, false
	}
	ref, ok := parseURN(urn)
	if !ok {
		return hits[0], true
	}

	code := actTypeCodes[ref.Type]
	for _, a := range hits {
		if ref.matches(a) && (code == "" || a.TypeCode == code) {
			return a, true
		}
	}
	for _, a := range hits {
		if ref.matches(a) {
			return a, true
		}
	}
	return act{}, false
}
