package handlers

import (
	"context"
	"fmt"
)

func dispatchStudentCount(ctx context.Context, c *Client, slots map[string]any) (*Result, error) {
	resp, err := c.do(ctx, "GET", "/students/count", nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &Result{Status: resp.StatusCode, Body: "Could not count students: " + resp.ErrorMessage()}, nil
	}

	if count, ok := resp.Body["count"].(float64); ok {
		return &Result{Status: resp.StatusCode, Body: fmt.Sprintf("The school currently has %d students.", int(count))}, nil
	}
	return &Result{Status: resp.StatusCode, Body: "Student count retrieved."}, nil
}

func dispatchRegisterStudent(ctx context.Context, c *Client, slots map[string]any) (*Result, error) {
	payload := map[string]any{"name": slotString(slots, "student_name")}
	if v := slotString(slots, "level"); v != "" {
		payload["level"] = v
	}
	if v := slotString(slots, "class_name"); v != "" {
		payload["class_name"] = v
	}

	resp, err := c.do(ctx, "POST", "/students", nil, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &Result{Status: resp.StatusCode, Body: "Could not register the student: " + resp.ErrorMessage()}, nil
	}

	body := fmt.Sprintf("Registered %s in %s.", payload["name"], classRef(slots))
	if id, ok := resp.Body["admission_no"].(string); ok && id != "" {
		body = fmt.Sprintf("Registered %s in %s with admission number %s.", payload["name"], classRef(slots), id)
	}
	return &Result{Status: resp.StatusCode, Body: body}, nil
}
