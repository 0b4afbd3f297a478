package xmlrpc

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/lvalerom/samphub/sampvalue"
)

// MethodCall is a decoded XML-RPC request.
type MethodCall struct {
	MethodName string
	Params     []sampvalue.Value
}

// MethodResponse is an XML-RPC response: exactly one of Params or Fault is
// populated, matching spec §7's "method fault" propagation.
type MethodResponse struct {
	Params []sampvalue.Value
	Fault  *Fault
}

// Fault carries an XML-RPC fault's numeric code and human-readable message.
// Per spec §4.3, a single generic code suffices; FaultCode is that sentinel.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("xmlrpc fault %d: %s", f.Code, f.Message)
}

// FaultCode is the generic fault code used for every RemoteFailure this
// implementation raises; callers distinguish failure kinds by message text
// and by the structured error returned alongside, not by code.
const FaultCode = 1

type rawMethodCall struct {
	MethodName string `xml:"methodName"`
	Params     struct {
		Param []struct {
			Value rawValue `xml:"value"`
		} `xml:"param"`
	} `xml:"params"`
}

// EncodeMethodCall renders a MethodCall as an XML-RPC request document.
func EncodeMethodCall(methodName string, params []sampvalue.Value) ([]byte, error) {
	for _, p := range params {
		if err := sampvalue.Validate(p); err != nil {
			return nil, err
		}
	}
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<methodCall><methodName>")
	xml.EscapeText(asWriter(&b), []byte(methodName))
	b.WriteString("</methodName><params>")
	for _, p := range params {
		b.WriteString("<param>")
		EncodeValue(&b, p)
		b.WriteString("</param>")
	}
	b.WriteString("</params></methodCall>")
	return []byte(b.String()), nil
}

// DecodeMethodCall parses an XML-RPC request document.
func DecodeMethodCall(data []byte) (*MethodCall, error) {
	var raw rawMethodCall
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding XML-RPC method call: %w", err)
	}
	call := &MethodCall{MethodName: raw.MethodName}
	for i := range raw.Params.Param {
		v, err := raw.Params.Param[i].Value.toSampValue()
		if err != nil {
			return nil, err
		}
		call.Params = append(call.Params, v)
	}
	return call, nil
}

type rawMethodResponse struct {
	Params *struct {
		Param []struct {
			Value rawValue `xml:"value"`
		} `xml:"param"`
	} `xml:"params"`
	Fault *struct {
		Value rawValue `xml:"value"`
	} `xml:"fault"`
}

// EncodeMethodResponse renders a successful response.
func EncodeMethodResponse(params []sampvalue.Value) ([]byte, error) {
	for _, p := range params {
		if err := sampvalue.Validate(p); err != nil {
			return nil, err
		}
	}
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<methodResponse><params>")
	for _, p := range params {
		b.WriteString("<param>")
		EncodeValue(&b, p)
		b.WriteString("</param>")
	}
	b.WriteString("</params></methodResponse>")
	return []byte(b.String()), nil
}

// EncodeFaultResponse renders a fault response.
func EncodeFaultResponse(f *Fault) []byte {
	m := sampvalue.NewMapping()
	m.Set("faultCode", sampvalue.EncodeInt(int64(f.Code)))
	m.Set("faultString", f.Message)

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<methodResponse><fault>")
	EncodeValue(&b, m)
	b.WriteString("</fault></methodResponse>")
	return []byte(b.String())
}

// DecodeMethodResponse parses an XML-RPC response document, which is either
// a successful params list or a fault.
func DecodeMethodResponse(data []byte) (*MethodResponse, error) {
	var raw rawMethodResponse
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding XML-RPC method response: %w", err)
	}
	if raw.Fault != nil {
		v, err := raw.Fault.Value.toSampValue()
		if err != nil {
			return nil, err
		}
		m, ok := v.(*sampvalue.Mapping)
		if !ok {
			return nil, fmt.Errorf("fault value is not a struct")
		}
		codeStr, _ := m.GetString("faultCode")
		msg, _ := m.GetString("faultString")
		code, err := sampvalue.DecodeInt(codeStr)
		if err != nil {
			code = FaultCode
		}
		return &MethodResponse{Fault: &Fault{Code: int(code), Message: msg}}, nil
	}
	resp := &MethodResponse{}
	if raw.Params != nil {
		for i := range raw.Params.Param {
			v, err := raw.Params.Param[i].Value.toSampValue()
			if err != nil {
				return nil, err
			}
			resp.Params = append(resp.Params, v)
		}
	}
	return resp, nil
}
