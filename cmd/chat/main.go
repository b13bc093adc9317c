// Command chat is a small terminal client for the gateway, handy for
// poking at a flow without the web UI.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "gateway base URL")
	flag.Parse()

	client := &http.Client{Timeout: 180 * time.Second}

	userLabel := color.New(color.FgCyan, color.Bold).SprintFunc()
	botLabel := color.New(color.FgGreen, color.Bold).SprintFunc()
	errLabel := color.New(color.FgRed).SprintFunc()

	fmt.Println("Connected to", *baseURL)
	fmt.Println("Commands: /clear  /debug  /quit")

	var sessionID string
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("%s ", userLabel("You:"))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit":
			return
		case "/clear":
			if sessionID == "" {
				fmt.Println("No session yet.")
				continue
			}
			if err := doDelete(client, *baseURL+"/session/"+sessionID); err != nil {
				fmt.Println(errLabel("clear failed:"), err)
				continue
			}
			fmt.Println("Session cleared.")
			continue
		case "/debug":
			if sessionID == "" {
				fmt.Println("No session yet.")
				continue
			}
			body, err := doGet(client, *baseURL+"/debug/session/"+sessionID)
			if err != nil {
				fmt.Println(errLabel("debug failed:"), err)
				continue
			}
			fmt.Println(string(body))
			continue
		}

		payload, _ := json.Marshal(chatRequest{Message: line, SessionID: sessionID})
		resp, err := client.Post(*baseURL+"/chat", "application/json", bytes.NewReader(payload))
		if err != nil {
			fmt.Println(errLabel("request failed:"), err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			fmt.Println(errLabel("read failed:"), err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			fmt.Println(errLabel(fmt.Sprintf("server returned %d:", resp.StatusCode)), string(body))
			continue
		}

		var reply chatResponse
		if err := json.Unmarshal(body, &reply); err != nil {
			fmt.Println(errLabel("bad response:"), err)
			continue
		}
		if reply.SessionID != "" {
			sessionID = reply.SessionID
		}
		fmt.Printf("%s %s\n", botLabel("Bot:"), reply.Response)
	}
}

func doGet(client *http.Client, url string) ([]byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func doDelete(client *http.Client, url string) error {
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
