package mcpserver

// ExportFormatContract describes the JSON document produced by export_data
// and accepted by the import endpoint.
const ExportFormatContract = `# techtrack Export Format

An export is a single UTF-8 JSON object.

## Structure

` + "```" + `json
{
  "exportedAt": "2026-01-15T10:00:00Z",
  "technologies": [
    {
      "id": 1768471200000,
      "title": "React",
      "description": "UI library",
      "category": "frontend",
      "difficulty": "intermediate",
      "status": "in-progress",
      "notes": "hooks first",
      "deadline": "2026-02-01",
      "resources": ["https://react.dev"],
      "createdAt": "2026-01-15T10:00:00Z",
      "updatedAt": "2026-01-15T10:00:00Z"
    }
  ],
  "settings": {
    "theme": "light",
    "language": "ru",
    "notifications": true,
    "autoSave": true
  }
}
` + "```" + `

## Rules

1. **` + "`" + `technologies` + "`" + ` is required.** A bare JSON array of technologies is accepted on import too.
2. Every technology needs a non-blank **` + "`" + `title` + "`" + `** and a **` + "`" + `status` + "`" + `** of
   ` + "`" + `not-started` + "`" + `, ` + "`" + `in-progress` + "`" + ` or ` + "`" + `completed` + "`" + `. One bad item rejects the whole import.
3. **` + "`" + `category` + "`" + `** is one of frontend, backend, database, devops, other (default frontend).
4. **` + "`" + `difficulty` + "`" + `** is one of beginner, intermediate, advanced (default beginner).
5. **` + "`" + `id` + "`" + `** may be a number or a numeric string. Missing or duplicate ids are replaced.
6. **` + "`" + `deadline` + "`" + `** is a calendar date, YYYY-MM-DD.
7. **` + "`" + `settings` + "`" + `** is optional. Missing keys keep their defaults; theme is light, dark or auto,
   language is ru or en.
8. An import **replaces** the whole collection. Documents over the size limit (5 MiB by default) are refused.
`
