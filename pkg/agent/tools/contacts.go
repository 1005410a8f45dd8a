package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"ai-context-engine/pkg/agent"
	"ai-context-engine/pkg/llm"
	"ai-context-engine/pkg/provider"
)

const googlePeopleBase = "https://people.googleapis.com/v1"

// ContactsLookup resolves a person's email address or phone number from
// the user's Google contacts. The agent calls it before drafting email
// to someone referred to by first name only.
type ContactsLookup struct {
	resolver provider.AccountResolver
	client   *http.Client
	base     string
}

func NewContactsLookup(resolver provider.AccountResolver) *ContactsLookup {
	return &ContactsLookup{resolver: resolver, client: newHTTPClient(), base: googlePeopleBase}
}

func (t *ContactsLookup) Definition() llm.Tool {
	return llm.Tool{
		Name: string(agent.ToolContactsLookup),
		Description: "Find a contact's email address or phone number by name. " +
			"Use before email_draft when only a name was given.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name or partial name to look up.",
				},
				"account": map[string]interface{}{
					"type":        "string",
					"description": "Optional account email (or fragment) when the user has several.",
				},
			},
			"required": []string{"name"},
		},
	}
}

func (t *ContactsLookup) Execute(ctx context.Context, inv agent.Invocation) (string, error) {
	name := stringArg(inv.Args, "name")
	if name == "" {
		return "", fmt.Errorf("name is required")
	}

	cred, err := t.resolver.Resolve(ctx, inv.UserID, stringArg(inv.Args, "account"))
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("query", name)
	params.Set("readMask", "names,emailAddresses,phoneNumbers")
	params.Set("pageSize", "5")

	var res struct {
		Results []struct {
			Person struct {
				Names []struct {
					DisplayName string `json:"displayName"`
				} `json:"names"`
				EmailAddresses []struct {
					Value string `json:"value"`
				} `json:"emailAddresses"`
				PhoneNumbers []struct {
					Value string `json:"value"`
				} `json:"phoneNumbers"`
			} `json:"person"`
		} `json:"results"`
	}
	reqURL := t.base + "/people:searchContacts?" + params.Encode()
	if err := doJSON(ctx, t.client, http.MethodGet, reqURL, cred.AccessToken, nil, &res); err != nil {
		return "", fmt.Errorf("contacts lookup: %w", err)
	}

	matches := make([]map[string]interface{}, 0, len(res.Results))
	for _, r := range res.Results {
		entry := map[string]interface{}{}
		if len(r.Person.Names) > 0 {
			entry["name"] = r.Person.Names[0].DisplayName
		}
		if len(r.Person.EmailAddresses) > 0 {
			emails := make([]string, 0, len(r.Person.EmailAddresses))
			for _, e := range r.Person.EmailAddresses {
				emails = append(emails, e.Value)
			}
			entry["emails"] = emails
		}
		if len(r.Person.PhoneNumbers) > 0 {
			entry["phone"] = r.Person.PhoneNumbers[0].Value
		}
		matches = append(matches, entry)
	}

	if len(matches) == 0 {
		return errorPayloadJSON(
			fmt.Sprintf("no contact matching %q", name),
			"ask the user for the address, or try a shorter name fragment",
		), nil
	}
	return marshalPayload(map[string]interface{}{
		"contacts": matches,
		"account":  cred.Email,
	}), nil
}
