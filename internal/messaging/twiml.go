package messaging

import "encoding/xml"

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// RenderTwiML wraps text in a TwiML messaging response.
func RenderTwiML(text string) ([]byte, error) {
	body, err := xml.Marshal(twimlResponse{Message: text})
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
