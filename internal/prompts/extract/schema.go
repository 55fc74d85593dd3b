package extract

import "encoding/json"

// PrescriptionSchema is the JSON schema recognizer output is validated against.
// Fields are nullable and optional: models routinely omit or null them, and the
// decoded result is normalized afterwards. Types are enforced.
var PrescriptionSchema = json.RawMessage(`{
  "name": "prescription_extraction",
  "strict": false,
  "schema": {
    "type": "object",
    "properties": {
      "doctorName": {"type": ["string", "null"]},
      "specialist": {"type": ["string", "null"]},
      "notes": {"type": ["string", "null"]},
      "medicines": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "properties": {
            "drug": {"type": ["string", "null"]},
            "dose": {"type": ["string", "null"]},
            "freq": {"type": ["string", "null"]},
            "notes": {"type": ["string", "null"]},
            "confidence": {"type": ["number", "null"]},
            "requiresManualReview": {"type": ["boolean", "null"]}
          }
        }
      }
    }
  }
}`)
