// Headless checkout: submits a PIX checkout against a running storefront API,
// waits for the payable code (polling if the gateway is slow to provision
// it), writes the QR image, and watches for payment confirmation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chipinfinity/checkout-api/internal/client"
	"github.com/chipinfinity/checkout-api/telemetry"

	"go.uber.org/zap"
)

func main() {
	var (
		server = flag.String("server", "http://localhost:8080", "storefront API base URL")
		name   = flag.String("name", "", "buyer full name")
		email  = flag.String("email", "", "buyer e-mail")
		phone  = flag.String("phone", "", "buyer phone (digits)")
		cpf    = flag.String("cpf", "", "buyer CPF (digits)")
		cep    = flag.String("cep", "", "shipping CEP (optional)")
		amount = flag.Float64("amount", 197.90, "order total in reais")
		qrOut  = flag.String("qr-out", "pix-qr.png", "where to write the QR PNG")
		wait   = flag.Duration("wait", 10*time.Minute, "how long to wait for confirmation")
	)
	flag.Parse()

	log, _ := telemetry.NewLogger()
	defer log.Sync()

	if *name == "" || *email == "" || *phone == "" || *cpf == "" {
		fmt.Fprintln(os.Stderr, "missing required flags: -name -email -phone -cpf")
		os.Exit(2)
	}

	api := client.NewAPI(*server, 15*time.Second)
	session := client.NewSession(api, client.NewMemoryStore(), log, client.Options{
		OnTransition: func(from, to client.State) {
			log.Info("checkout state", zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	err := session.Submit(ctx, client.CheckoutForm{
		Name:   *name,
		Email:  *email,
		Phone:  *phone,
		CPF:    *cpf,
		CEP:    *cep,
		Amount: *amount,
	})
	if err != nil {
		log.Fatal("checkout failed", zap.Error(err))
	}

	printedCode := false
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("timed out waiting for payment confirmation")
			for _, entry := range session.Diagnostics() {
				fmt.Println("  ", entry)
			}
			return
		case <-ticker.C:
		}

		if p := session.Payment(); p != nil && !printedCode {
			printedCode = true
			fmt.Println("PIX copia e cola:")
			fmt.Println(p.Code)
			if png, err := client.RenderQR(p.Code); err == nil {
				if err := os.WriteFile(*qrOut, png, 0o644); err == nil {
					fmt.Println("QR image written to", *qrOut)
				}
			}
			fmt.Println("aguardando pagamento...")
		}

		switch session.State() {
		case client.StatePaid:
			fmt.Println("pagamento confirmado ✔")
			return
		case client.StateExpired:
			if session.SoftExpired() {
				log.Warn("pix not available in the normal window; opening extended window")
				session.RetryExtended()
			}
		case client.StateIdle:
			if printedCode {
				fmt.Println("order expired; payment data discarded")
				return
			}
		}
	}
}
