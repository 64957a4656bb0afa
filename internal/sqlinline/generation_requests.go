package sqlinline

const QInsertGenerationRequest = `--sql 1b6f0c3e-8a2d-4e7b-9f15-3c4d8e2a7b90
insert into generation_requests(id, status, request_json, created_at, updated_at)
values ($1::uuid, 'QUEUED', $2::jsonb, now(), now())
returning created_at, updated_at;
`

const QSelectGenerationRequest = `--sql 7d2e9a41-c6b3-4f80-a1d5-92e7f3b0c864
select id::text, status, request_json, report_json, error_code, error_message, created_at, updated_at
from generation_requests
where id = $1::uuid
limit 1;
`

const QClaimGenerationRequest = `--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db
with next_request as (
    select id
    from generation_requests
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update generation_requests
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_request)
    returning id::text, status, request_json, report_json, error_code, error_message, created_at, updated_at
)
select * from updated;
`

const QCompleteGenerationRequest = `--sql c3a85f12-0e4d-4b96-8d7a-5f1e2b9c0a37
update generation_requests
set status = 'SUCCEEDED', report_json = $2::jsonb, error_code = '', error_message = '', updated_at = now()
where id = $1::uuid;
`

const QFailGenerationRequest = `--sql 92f04b6d-3a1c-4e58-b7e2-0d6c9a4f81e5
update generation_requests
set status = 'FAILED', error_code = $2::text, error_message = $3::text, updated_at = now()
where id = $1::uuid;
`

const QFailOrphanedGenerationRequests = `--sql e61b7c28-94f5-4d03-a2c8-7b3e0f5d1a96
update generation_requests
set status = 'FAILED', error_code = 'Unknown', error_message = $1::text, updated_at = now()
where status = 'RUNNING';
`
