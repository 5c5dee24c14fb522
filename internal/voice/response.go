package voice

import (
	"encoding/json"
	"fmt"
)

// Response is the closed set of telephony control responses the state
// machine can produce. Variants are plain values; rendering to the vendor's
// SVAML wire format happens only at the HTTP boundary via Render.
type Response interface {
	isResponse()
}

// Prompt instructs the vendor to collect a PIN via DTMF.
type Prompt struct {
	Message         string
	MaxDigits       int
	TerminatorDigit string
	TimeoutMillis   int
}

// Connect joins the call into a conference, preceded by an announcement.
type Connect struct {
	ConferenceID string
	Announcement string
	HoldMusic    string
}

// Hangup ends the call, preceded by an apology announcement.
type Hangup struct {
	Announcement string
}

// Empty is the bodyless response DICE expects.
type Empty struct{}

func (Prompt) isResponse()  {}
func (Connect) isResponse() {}
func (Hangup) isResponse()  {}
func (Empty) isResponse()   {}

// SVAML wire shapes. Only the subset the bridge emits.

type svamlResponse struct {
	Instructions []svamlInstruction `json:"instructions,omitempty"`
	Action       any                `json:"action,omitempty"`
}

type svamlInstruction struct {
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
}

type svamlRunMenu struct {
	Name  string      `json:"name"`
	Barge bool        `json:"barge"`
	Menus []svamlMenu `json:"menus"`
}

type svamlMenu struct {
	ID           string            `json:"id"`
	MainPrompt   string            `json:"mainPrompt"`
	MaxDigits    int               `json:"maxDigits"`
	TimeoutMills int               `json:"timeoutMills"`
	Options      []svamlMenuOption `json:"options"`
}

type svamlMenuOption struct {
	DTMF   string `json:"dtmf"`
	Action string `json:"action"`
}

type svamlConnectConf struct {
	Name         string `json:"name"`
	ConferenceID string `json:"conferenceId"`
	MOH          string `json:"moh,omitempty"`
}

type svamlHangup struct {
	Name string `json:"name"`
}

// Render serializes a response variant to its SVAML body. Empty renders to
// a nil body: the protocol defines no payload for that case.
func Render(r Response) ([]byte, error) {
	switch v := r.(type) {
	case Prompt:
		return json.Marshal(svamlResponse{
			Action: svamlRunMenu{
				Name:  "runMenu",
				Barge: true,
				Menus: []svamlMenu{{
					ID:           "main",
					MainPrompt:   "#tts[" + v.Message + "]",
					MaxDigits:    v.MaxDigits,
					TimeoutMills: v.TimeoutMillis,
					Options: []svamlMenuOption{{
						DTMF:   v.TerminatorDigit,
						Action: "return",
					}},
				}},
			},
		})
	case Connect:
		return json.Marshal(svamlResponse{
			Instructions: []svamlInstruction{{Name: "say", Text: v.Announcement}},
			Action: svamlConnectConf{
				Name:         "connectConf",
				ConferenceID: v.ConferenceID,
				MOH:          v.HoldMusic,
			},
		})
	case Hangup:
		return json.Marshal(svamlResponse{
			Instructions: []svamlInstruction{{Name: "say", Text: v.Announcement}},
			Action:       svamlHangup{Name: "hangup"},
		})
	case Empty:
		return nil, nil
	default:
		return nil, fmt.Errorf("voice: unknown response variant %T", r)
	}
}
