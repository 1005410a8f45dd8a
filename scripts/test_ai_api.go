package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// Smoke test for the running engine: ingest -> session -> streamed chat ->
// history -> cleanup. Needs a server on baseURL plus:
//
//	API_TOKEN   user JWT (any token signed with the server's JWT_SECRET)
//	SERVICE_KEY raw bridge key minted by cmd/seed
//	OWNER_ID    uuid inside API_TOKEN, so the chat can see the test document
//
// Optional: API_BASE_URL (default http://localhost:3000).
var baseURL = "http://localhost:3000"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, headers map[string]string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func dataField(body []byte, field string) string {
	var parsed map[string]interface{}
	json.Unmarshal(body, &parsed)
	if data, ok := parsed["data"].(map[string]interface{}); ok {
		if v, ok := data[field].(string); ok {
			return v
		}
	}
	return ""
}

func main() {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		baseURL = v
	}
	userToken := os.Getenv("API_TOKEN")
	serviceKey := os.Getenv("SERVICE_KEY")
	if userToken == "" || serviceKey == "" {
		color.Red("API_TOKEN and SERVICE_KEY must be set")
		os.Exit(1)
	}
	authHeader := map[string]string{"Authorization": "Bearer " + userToken}
	bridgeHeader := map[string]string{"X-Service-Key": serviceKey}

	ownerID := os.Getenv("OWNER_ID")
	if ownerID == "" {
		color.Red("OWNER_ID must be set (uuid the test document belongs to)")
		os.Exit(1)
	}

	color.Cyan("🚀 Starting Engine API Smoke Test\n")

	// 1. Health
	color.Yellow("\n[CORE] 1. Health Check")
	resp, body, err := sendRequest("GET", "/health", nil, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	// 2. Bridge: ingest a document the chat can find
	color.Yellow("\n[BRIDGE] 2. Ingest Test Document")
	sourceID := fmt.Sprintf("smoke-%d", time.Now().Unix())
	ingestReq := map[string]interface{}{
		"owner_id":    ownerID,
		"source_type": "note_chunk",
		"source_id":   sourceID,
		"title":       "Smoke test note",
		"content":     "The smoke test offsite happens on the second Tuesday of next month in the Lisbon office.",
	}
	resp, body, err = sendRequest("POST", "/internal/documents", bridgeHeader, ingestReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var ingestResp map[string]interface{}
	json.Unmarshal(body, &ingestResp)
	prettyPrint(ingestResp)

	// Give the index consumer a moment before asking about the document.
	time.Sleep(2 * time.Second)

	// 3. User: create chat session
	color.Yellow("\n[USER] 3. Create Chat Session")
	resp, body, err = sendRequest("POST", "/api/v1/sessions", authHeader, map[string]interface{}{})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	sessionID := dataField(body, "id")
	if sessionID == "" {
		color.Red("No session id returned")
		os.Exit(1)
	}
	fmt.Printf("Created Session ID: %s\n", sessionID)

	// 4. User: streamed chat over the ingested document
	color.Yellow("\n[USER] 4. Stream Chat (NDJSON)")
	chatReq := map[string]interface{}{
		"chat_session_id": sessionID,
		"message":         "Where does the smoke test offsite happen?",
		"timezone":        "Europe/Lisbon",
	}
	streamBody, _ := json.Marshal(chatReq)
	req, _ := http.NewRequest("POST", baseURL+"/v2/chat", bytes.NewBuffer(streamBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userToken)
	streamClient := &http.Client{} // no timeout, the stream stays open until the answer
	streamResp, err := streamClient.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", streamResp.Status)

	scanner := bufio.NewScanner(streamResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var event map[string]interface{}
		if err := json.Unmarshal(line, &event); err != nil {
			fmt.Printf("  (unparsed) %s\n", line)
			continue
		}
		switch event["type"] {
		case "ack":
			fmt.Printf("  ack: %v\n", event["text"])
		case "response":
			fmt.Printf("  response: %v\n", event["response"])
			if dbg, ok := event["_debug"].(map[string]interface{}); ok {
				fmt.Printf("  path=%v tools=%v timing=%v\n", dbg["path"], dbg["tools_used"], dbg["timing"])
			}
		case "error":
			color.Red("  error: %v", event["message"])
		default:
			prettyPrint(event)
		}
	}
	streamResp.Body.Close()
	if err := scanner.Err(); err != nil {
		color.Red("Stream read failed: %v", err)
	}

	// 5. User: history shows both turns
	color.Yellow("\n[USER] 5. Get Chat History")
	resp, body, err = sendRequest("GET", "/api/v1/sessions/"+sessionID+"/history", authHeader, nil)
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
		var historyResp map[string]interface{}
		json.Unmarshal(body, &historyResp)
		if turns, ok := historyResp["data"].([]interface{}); ok {
			fmt.Printf("Turns: %d\n", len(turns))
		} else {
			prettyPrint(historyResp)
		}
	}

	// 6. Cleanup: session, then the ingested document
	color.Yellow("\n[CLEANUP] 6. Delete Session And Document")
	resp, _, err = sendRequest("DELETE", "/api/v1/sessions/"+sessionID, authHeader, nil)
	if err != nil {
		color.Red("Session delete failed: %v", err)
	} else {
		color.Green("Session delete: %s", resp.Status)
	}
	resp, _, err = sendRequest("DELETE", "/internal/documents/"+sourceID+"?owner_id="+ownerID, bridgeHeader, nil)
	if err != nil {
		color.Red("Document delete failed: %v", err)
	} else {
		color.Green("Document delete: %s", resp.Status)
	}

	color.Cyan("\n✅ Smoke Test Complete")
}
