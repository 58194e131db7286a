// Package extract is the optional structured-extraction path: OCR text is
// sent to an OpenAI-compatible chat model with a fixed instruction contract,
// and the answer is normalized with the same glued-stake disambiguation the
// local parser uses. The local parser stays the fallback.
package extract

// MaxOdds and MaxStake are the sanity bounds stated in the instruction
// contract. Values above them are treated as misread.
const (
	MaxOdds  = 100.0
	MaxStake = 10000.0
)

// Instructions is the fixed contract sent with every request. Changing it
// changes the shape of what comes back; keep it in step with Candidate.
const Instructions = `You extract sports betting arbitrage ("surebet") data from OCR text of a screenshot.
Reply with ONE JSON object and nothing else: no markdown, no code fences, no comments.

The object MUST have exactly this shape:
{
  "match": {"team1": "", "team2": "", "sport": "", "competition": ""},
  "bookmakers": [
    {"name": "", "odds": 0, "betType": "", "stake": 0, "profit": 0}
  ]
}

Rules:
1. team1 and team2 come from the line with the event, split on the dash ("-" or "—"). Drop any trailing percentage such as "3.04%".
2. sport is the text before "/" on the sport line; competition is the text after "/". Use "" when absent.
3. One bookmakers entry per bet row, in the order the rows appear. name is the bookmaker, betType is the market label (for example "1", "X", "2", "Over 2.5"), "" when absent.
4. Numbers are JSON numbers with "." as decimal separator. The text uses Brazilian format: "1.758,48" means 1758.48.
5. Stakes whose decimal separator was lost appear as a bare run of 5 or more digits, for example 175848. Insert the decimal point two digits from the end (1758.48) unless that contradicts the total stake shown in the text; then choose the placement that makes the stakes add up to the total.
6. odds are decimal odds between 1 and 100. A value above 100 is a misread; re-read it. Never prefix odds with a spurious "1." (2.891 must not become 1.2891).
7. stake is between 0 and 10000. A value above 10000 is a glued number; apply rule 5.
8. profit is the payout shown on the row (stake times odds). Use null when it is not shown.
9. Never invent bookmakers, teams or numbers that are not in the text. Use "" or null for anything you cannot read.`

// Prompt returns the full request text for one OCR capture.
func Prompt(text string) string {
	return Instructions + "\n\nOCR text:\n" + text
}
