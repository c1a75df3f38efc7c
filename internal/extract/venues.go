package extract

type Venue struct {
	Code string
	Name string
}

// venues keyed by the two digit code embedded in race ids
var venuesByID = map[string]Venue{
	"01": {Code: "SAP", Name: "札幌"},
	"02": {Code: "HAK", Name: "函館"},
	"03": {Code: "FKS", Name: "福島"},
	"04": {Code: "NII", Name: "新潟"},
	"05": {Code: "TOK", Name: "東京"},
	"06": {Code: "NAK", Name: "中山"},
	"07": {Code: "CKY", Name: "中京"},
	"08": {Code: "KYT", Name: "京都"},
	"09": {Code: "HAN", Name: "阪神"},
	"10": {Code: "KOK", Name: "小倉"},
}

var venuesByName = func() map[string]Venue {
	out := map[string]Venue{}
	for _, v := range venuesByID {
		out[v.Name] = v
	}
	return out
}()

// VenueByName looks up a venue by its Japanese name.
func VenueByName(name string) (Venue, bool) {
	v, ok := venuesByName[name]
	return v, ok
}

// VenueFromRaceID reads the venue out of a 12 digit race id
// (year4 + venue2 + meet2 + day2 + race2).
func VenueFromRaceID(raceID string) (Venue, bool) {
	if len(raceID) != 12 {
		return Venue{}, false
	}
	v, ok := venuesByID[raceID[4:6]]
	return v, ok
}
