// Package docsendsdk is a Go client for the docsend API.
//
// # Public endpoints
//
// An SDKClient reaches the unauthenticated endpoints directly:
//
//	client := docsendsdk.NewSDKClient("https://docsend.example.com")
//	health, err := client.GetReadiness(ctx)
//	res, err := client.RedeemVerification(ctx, token) // res.Outcome == "success"
//
// The client never follows redirects, so RedeemVerification can report the
// verification outcome the service chose.
//
// # Sessions
//
// Everything else needs a bearer token from the identity provider:
//
//	session := client.NewSession(accessToken)
//	doc, err := session.GetDocument(ctx, docsendsdk.TypeInvoice, id)
//	_, err = session.Send(ctx, docsendsdk.SendRequest{
//		DocumentID:    doc.ID,
//		Type:          doc.Type,
//		To:            "billing@client.example",
//		Subject:       "Invoice " + doc.Number,
//		ContentDigest: doc.ContentDigest,
//	})
//
// With CheckScopes enabled a Session refuses calls its token's scopes do
// not cover and returns ErrMissingScope without contacting the service.
//
// # Errors
//
// Failed calls return *APIError with the service's error code. Use IsCode to
// branch on it:
//
//	if docsendsdk.IsCode(err, docsendsdk.CodeStaleDocument) {
//		// reload and retry
//	}
package docsendsdk
