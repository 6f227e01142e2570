// Package dto holds the wire format of the Alpha Vantage TIME_SERIES_DAILY endpoint.
package dto

// DailyResponse is the body of a TIME_SERIES_DAILY call. The API reports
// throttling and key problems inside HTTP 200 bodies through Note,
// Information and ErrorMessage.
type DailyResponse struct {
	MetaData     map[string]string   `json:"Meta Data"`
	TimeSeries   map[string]DailyBar `json:"Time Series (Daily)"`
	Note         string              `json:"Note"`
	Information  string              `json:"Information"`
	ErrorMessage string              `json:"Error Message"`
}

// DailyBar is one day of the series. All values arrive as strings.
type DailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}
