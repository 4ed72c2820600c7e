package handlers

import (
	"context"
	"fmt"
	"net/url"
)

func dispatchSetFeeAmount(ctx context.Context, c *Client, slots map[string]any) (*Result, error) {
	amount, ok := slotNumber(slots, "amount")
	if !ok {
		return nil, fmt.Errorf("set_fee_amount: amount slot is not numeric")
	}

	payload := map[string]any{"amount": amount}
	if v := slotString(slots, "level"); v != "" {
		payload["level"] = v
	}
	if v := slotString(slots, "class_name"); v != "" {
		payload["class_name"] = v
	}
	if v := slotString(slots, "fee_type"); v != "" {
		payload["fee_type"] = v
	}

	resp, err := c.do(ctx, "POST", "/fees/amounts", nil, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &Result{Status: resp.StatusCode, Body: "Could not update the fee: " + resp.ErrorMessage()}, nil
	}

	feeType := slotString(slots, "fee_type")
	if feeType == "" {
		feeType = "fee"
	}
	return &Result{
		Status: resp.StatusCode,
		Body:   fmt.Sprintf("%s for %s set to %s.", feeType, classRef(slots), formatAmount(amount)),
	}, nil
}

func dispatchFeeBalance(ctx context.Context, c *Client, slots map[string]any) (*Result, error) {
	query := url.Values{}
	if v := slotString(slots, "student_id"); v != "" {
		query.Set("student_id", v)
	} else if v := slotString(slots, "student_name"); v != "" {
		query.Set("student_name", v)
	}

	resp, err := c.do(ctx, "GET", "/fees/balance", query, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &Result{Status: resp.StatusCode, Body: "Could not look up the balance: " + resp.ErrorMessage()}, nil
	}

	student := query.Get("student_id")
	if student == "" {
		student = query.Get("student_name")
	}
	if balance, ok := resp.Body["balance"].(float64); ok {
		return &Result{
			Status: resp.StatusCode,
			Body:   fmt.Sprintf("Outstanding balance for %s: %s.", student, formatAmount(balance)),
		}, nil
	}
	return &Result{Status: resp.StatusCode, Body: fmt.Sprintf("Balance for %s retrieved.", student)}, nil
}

func dispatchGenerateInvoices(ctx context.Context, c *Client, slots map[string]any) (*Result, error) {
	payload := map[string]any{"term": slotString(slots, "term")}
	if v := slotString(slots, "academic_year"); v != "" {
		payload["academic_year"] = v
	}

	resp, err := c.do(ctx, "POST", "/invoices/generate", nil, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &Result{Status: resp.StatusCode, Body: "Invoice generation failed: " + resp.ErrorMessage()}, nil
	}

	if count, ok := resp.Body["generated"].(float64); ok {
		return &Result{
			Status: resp.StatusCode,
			Body:   fmt.Sprintf("Generated %d invoices for %s.", int(count), payload["term"]),
		}, nil
	}
	return &Result{Status: resp.StatusCode, Body: fmt.Sprintf("Invoices for %s generated.", payload["term"])}, nil
}
