package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// MethodCard charges a tokenized card; every other method opens a source first.
const MethodCard = "card"

// Omise talks to the Omise API.
type Omise struct {
	client    *omise.Client
	returnURI string
}

func NewOmise(publicKey, secretKey, returnURI string) (*Omise, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	return &Omise{client: c, returnURI: returnURI}, nil
}

func (o *Omise) CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error) {
	if req.Amount <= 0 || req.Currency == "" {
		return Charge{}, errors.New("invalid charge params")
	}
	if err := ctx.Err(); err != nil {
		return Charge{}, err
	}

	op := &operations.CreateCharge{
		Amount:    req.Amount,
		Currency:  req.Currency,
		ReturnURI: o.returnURI,
		Metadata:  req.Metadata,
	}

	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" || method == MethodCard {
		if req.Token == "" {
			return Charge{}, errors.New("card token required")
		}
		op.Card = req.Token
	} else {
		src := &omise.Source{}
		if err := o.client.Do(src, &operations.CreateSource{
			Type:     method,
			Amount:   req.Amount,
			Currency: req.Currency,
		}); err != nil {
			return Charge{}, err
		}
		op.Source = src.ID
	}

	ch := &omise.Charge{}
	if err := o.client.Do(ch, op); err != nil {
		return Charge{}, err
	}
	return fromOmise(ch), nil
}

func (o *Omise) RetrieveCharge(ctx context.Context, reference string) (Charge, error) {
	if err := ctx.Err(); err != nil {
		return Charge{}, err
	}
	ch := &omise.Charge{}
	if err := o.client.Do(ch, &operations.RetrieveCharge{ChargeID: reference}); err != nil {
		var oerr *omise.Error
		if errors.As(err, &oerr) && oerr.StatusCode == http.StatusNotFound {
			return Charge{}, fmt.Errorf("%w: %s", ErrChargeNotFound, reference)
		}
		return Charge{}, err
	}
	return fromOmise(ch), nil
}

// FromOmiseCharge converts a charge embedded in a webhook event.
func FromOmiseCharge(ch omise.Charge) Charge {
	return fromOmise(&ch)
}

func fromOmise(ch *omise.Charge) Charge {
	out := Charge{
		Reference:    ch.ID,
		ClientSecret: ch.AuthorizeURI,
		Amount:       ch.Amount,
		Currency:     ch.Currency,
	}
	switch string(ch.Status) {
	case "successful":
		out.Status = ChargeSuccessful
	case "failed", "expired", "reversed":
		out.Status = ChargeFailed
	default:
		out.Status = ChargePending
	}
	if ch.FailureCode != nil {
		out.FailureCode = *ch.FailureCode
	}
	if id, ok := ch.Metadata[MetadataPaymentID].(string); ok {
		out.PaymentID = id
	}
	if ch.FailureMessage != nil {
		out.FailureReason = *ch.FailureMessage
	}
	return out
}
