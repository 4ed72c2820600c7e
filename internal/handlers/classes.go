package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

func dispatchCreateClass(ctx context.Context, c *Client, slots map[string]any) (*Result, error) {
	payload := map[string]any{
		"name":          slotString(slots, "name"),
		"level":         slotString(slots, "level"),
		"academic_year": slotString(slots, "academic_year"),
	}

	resp, err := c.do(ctx, "POST", "/classes", nil, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &Result{Status: resp.StatusCode, Body: "Could not create the class: " + resp.ErrorMessage()}, nil
	}
	return &Result{
		Status: resp.StatusCode,
		Body:   fmt.Sprintf("Created class %s (%s) for %s.", payload["name"], payload["level"], payload["academic_year"]),
	}, nil
}

func dispatchListClasses(ctx context.Context, c *Client, slots map[string]any) (*Result, error) {
	query := url.Values{}
	if v := slotString(slots, "academic_year"); v != "" {
		query.Set("academic_year", v)
	}

	resp, err := c.do(ctx, "GET", "/classes", query, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &Result{Status: resp.StatusCode, Body: "Could not list classes: " + resp.ErrorMessage()}, nil
	}

	classes, ok := resp.Body["classes"].([]any)
	if !ok {
		return &Result{Status: resp.StatusCode, Body: "Class list retrieved."}, nil
	}
	if len(classes) == 0 {
		return &Result{Status: resp.StatusCode, Body: "No classes found."}, nil
	}

	var names []string
	for _, entry := range classes {
		if m, ok := entry.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
				continue
			}
		}
		if s, ok := entry.(string); ok {
			names = append(names, s)
		}
	}
	return &Result{
		Status: resp.StatusCode,
		Body:   fmt.Sprintf("%d classes: %s.", len(classes), strings.Join(names, ", ")),
	}, nil
}
