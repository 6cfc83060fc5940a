package overlay

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
)

// Протокол управления оверлеем (obs-websocket v5, используемое подмножество):
// рукопожатие Hello → Identify → Identified, затем пары Request/RequestResponse.
// Кроме ответов сервер может асинхронно присылать события и закрывать
// соединение; читающий цикл обязан их различать.

const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opEvent           = 5
	opRequest         = 6
	opRequestResponse = 7
)

const rpcVersion = 1

type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type helloAuth struct {
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
}

type helloData struct {
	RPCVersion     int        `json:"rpcVersion"`
	Authentication *helloAuth `json:"authentication,omitempty"`
}

type identifyData struct {
	RPCVersion     int    `json:"rpcVersion"`
	Authentication string `json:"authentication,omitempty"`
}

type requestData struct {
	RequestType string      `json:"requestType"`
	RequestID   string      `json:"requestId"`
	RequestData interface{} `json:"requestData,omitempty"`
}

type requestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment,omitempty"`
}

type requestResponseData struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus requestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
}

func marshalEnvelope(op int, d interface{}) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Op: op, D: raw})
}

// authResponse вычисляет строку аутентификации рукопожатия:
// base64(sha256(base64(sha256(password+salt)) + challenge)).
func authResponse(password string, auth helloAuth) string {
	secretHash := sha256.Sum256([]byte(password + auth.Salt))
	secret := base64.StdEncoding.EncodeToString(secretHash[:])

	responseHash := sha256.Sum256([]byte(secret + auth.Challenge))
	return base64.StdEncoding.EncodeToString(responseHash[:])
}
